package domain

import (
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityBaja  Priority = "baja"
	PriorityMedia Priority = "media"
	PriorityAlta  Priority = "alta"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityBaja || p == PriorityMedia || p == PriorityAlta
}

// StageChange is one entry of a deal's append-only stage history.
type StageChange struct {
	FromStage Stage     `json:"fromStage"`
	ToStage   Stage     `json:"toStage"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId"`
}

// Deal is a sales opportunity moving through the pipeline.
type Deal struct {
	ID             string   `json:"id"`
	Stage          Stage    `json:"stage"`
	EstimatedValue *float64 `json:"valorEstimado,omitempty"`
	Service        string   `json:"servicio"`
	Source         string   `json:"fuente"`

	Company      string `json:"empresa"`
	Industry     string `json:"industria"`
	Website      string `json:"sitioWeb"`
	CompanyPhone string `json:"telefonoEmpresa"`
	Address      string `json:"direccion"`
	City         string `json:"ciudad"`

	ContactName     string `json:"contactoNombre"`
	ContactEmail    string `json:"contactoEmail"`
	ContactPhone    string `json:"contactoTelefono"`
	ContactPosition string `json:"contactoCargo"`

	AssignedTo   []string      `json:"asignados"`
	CreatedAt    time.Time     `json:"createdAt"`
	StageHistory []StageChange `json:"stageHistory"`
}

// PrimaryAssignee is the first assigned user, or "" when nobody is assigned.
func (d Deal) PrimaryAssignee() string {
	for _, id := range d.AssignedTo {
		if strings.TrimSpace(id) != "" {
			return id
		}
	}
	return ""
}

// IsAssignedTo reports whether userID is one of the deal's assignees.
func (d Deal) IsAssignedTo(userID string) bool {
	for _, id := range d.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// HasContact is true when a contact name or email is present.
func (d Deal) HasContact() bool {
	return strings.TrimSpace(d.ContactName) != "" || strings.TrimSpace(d.ContactEmail) != ""
}

// HasEstimate is true when a monetary estimate was entered.
func (d Deal) HasEstimate() bool {
	return d.EstimatedValue != nil
}

// HasService is true when a service tag is set.
func (d Deal) HasService() bool {
	return strings.TrimSpace(d.Service) != ""
}

// StageEnteredAt is the timestamp of the last history entry, falling back to CreatedAt.
func (d Deal) StageEnteredAt() time.Time {
	if n := len(d.StageHistory); n > 0 {
		return d.StageHistory[n-1].Timestamp
	}
	return d.CreatedAt
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (d Deal) Clone() Deal {
	out := d
	if d.EstimatedValue != nil {
		v := *d.EstimatedValue
		out.EstimatedValue = &v
	}
	out.AssignedTo = append([]string(nil), d.AssignedTo...)
	out.StageHistory = append([]StageChange(nil), d.StageHistory...)
	return out
}

// Account is a won customer materialized from a deal.
type Account struct {
	ID             string   `json:"id"`
	Name           string   `json:"nombre"`
	Industry       string   `json:"industria"`
	Website        string   `json:"sitioWeb"`
	Phone          string   `json:"telefono"`
	Address        string   `json:"direccion"`
	City           string   `json:"ciudad"`
	EstimatedValue *float64 `json:"valorEstimado,omitempty"`
	Service        string   `json:"servicio"`
	AssignedTo     []string `json:"asignados"`

	// PipelineID links back to the deal this account was converted from.
	PipelineID string `json:"pipelineId,omitempty"`
	// DetachedFromPipelineID keeps the former link after a declined reversal.
	DetachedFromPipelineID string `json:"detachedFromPipelineId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Contact is a person at an account.
type Contact struct {
	ID        string    `json:"id"`
	AccountID string    `json:"cuentaId"`
	Name      string    `json:"nombre"`
	Email     string    `json:"email"`
	Phone     string    `json:"telefono"`
	Position  string    `json:"cargo"`
	Principal bool      `json:"principal"`
	CreatedAt time.Time `json:"createdAt"`
}

// Activity is a logged interaction such as a call, email or meeting.
type Activity struct {
	ID          string    `json:"id"`
	Owner       Owner     `json:"owner"`
	Type        string    `json:"tipo"`
	Description string    `json:"descripcion"`
	Date        time.Time `json:"fecha"`
	CreatedBy   string    `json:"creadoPor"`
}

// Task is a scheduled follow-up item.
type Task struct {
	ID            string     `json:"id"`
	Owner         Owner      `json:"owner"`
	Title         string     `json:"titulo"`
	Description   string     `json:"descripcion,omitempty"`
	DueDate       time.Time  `json:"fechaCompromiso"`
	Priority      Priority   `json:"prioridad"`
	ResponsibleID string     `json:"responsable"`
	Completed     bool       `json:"completada"`
	CompletedAt   *time.Time `json:"completadaEn,omitempty"`
	AutoGenerated bool       `json:"autoGenerada"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Reminder is a dated nudge for one user.
type Reminder struct {
	ID        string    `json:"id"`
	Owner     Owner     `json:"owner"`
	Title     string    `json:"titulo"`
	Date      time.Time `json:"fecha"`
	UserID    string    `json:"usuario"`
	Completed bool      `json:"completado"`
}

// User is a CRM user who can be assigned deals and receive notifications.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
}

// Owned is implemented by records scoped to a deal or an account.
type Owned[T any] interface {
	OwnerRef() Owner
	WithOwner(Owner) T
}

func (a Activity) OwnerRef() Owner { return a.Owner }

func (a Activity) WithOwner(o Owner) Activity {
	a.Owner = o
	return a
}

func (t Task) OwnerRef() Owner { return t.Owner }

func (t Task) WithOwner(o Owner) Task {
	t.Owner = o
	return t
}

func (r Reminder) OwnerRef() Owner { return r.Owner }

func (r Reminder) WithOwner(o Owner) Reminder {
	r.Owner = o
	return r
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EntityID methods let generic stores key records without reflection.
func (d Deal) EntityID() string     { return d.ID }
func (a Account) EntityID() string  { return a.ID }
func (c Contact) EntityID() string  { return c.ID }
func (a Activity) EntityID() string { return a.ID }
func (t Task) EntityID() string     { return t.ID }
func (r Reminder) EntityID() string { return r.ID }
func (u User) EntityID() string     { return u.ID }

// Notification categories.
const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryWarning = "warning"
)

// Notice is a notification produced by a pipeline operation, delivered after
// the operation's changes are applied.
type Notice struct {
	UserID   string
	Message  string
	Category string
}
