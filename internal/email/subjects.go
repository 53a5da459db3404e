package email

const (
	subjectInfo    = "Novedades en tu pipeline"
	subjectSuccess = "Operación completada en el pipeline"
	subjectWarning = "Atención: hay oportunidades que requieren seguimiento"
)

// SubjectFor returns the subject line used for a notification category.
func SubjectFor(category string) string {
	switch category {
	case "success":
		return subjectSuccess
	case "warning":
		return subjectWarning
	default:
		return subjectInfo
	}
}
