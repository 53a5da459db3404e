package domain

// OwnerKind names the record type that owns an activity, task or reminder.
type OwnerKind string

const (
	OwnerPipeline OwnerKind = "pipeline"
	OwnerCuenta   OwnerKind = "cuenta"
)

// Owner is the single owner reference of a child record.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// DealOwner references a deal.
func DealOwner(dealID string) Owner {
	return Owner{Kind: OwnerPipeline, ID: dealID}
}

// AccountOwner references an account.
func AccountOwner(accountID string) Owner {
	return Owner{Kind: OwnerCuenta, ID: accountID}
}

// IsDeal reports whether the owner is the given deal.
func (o Owner) IsDeal(dealID string) bool {
	return o.Kind == OwnerPipeline && o.ID == dealID
}

// IsAccount reports whether the owner is the given account.
func (o Owner) IsAccount(accountID string) bool {
	return o.Kind == OwnerCuenta && o.ID == accountID
}

// Valid reports whether the reference names a known kind and a non-empty id.
func (o Owner) Valid() bool {
	return (o.Kind == OwnerPipeline || o.Kind == OwnerCuenta) && o.ID != ""
}
