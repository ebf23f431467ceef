package app

import "errors"

// IntegrityError reports a business rule violation. The reason is written
// for end users and is safe to return in an API response.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string { return e.Reason }

func integrityError(reason string) error {
	return &IntegrityError{Reason: reason}
}

var (
	// ErrInvalidCredentials is returned for every login failure.
	// One message for unknown email, wrong password, and inactive accounts
	// so responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("Usuario o contraseña inválidos")

	// ErrUnknownTokenSubject is returned when a valid token references a
	// user that no longer exists or was deactivated.
	ErrUnknownTokenSubject = errors.New("token subject not found")
)

// Integrity failure reasons, matching the API's Spanish user-facing contract.
const (
	reasonTeacherRequired     = "Ingrese un usuario con el rol 'Docente'"
	reasonStudentRequired     = "Ingrese un estudiante válido"
	reasonCourseNameTaken     = "El nombre del curso ya está en uso"
	reasonCourseRequired      = "Ingrese un curso válido"
	reasonInvalidUser         = "El usuario ingresado no es válido"
	reasonInvalidCourse       = "El curso ingresado no es válido"
	reasonInvalidTopic        = "El tópico ingresado no es válido"
	reasonEmailTaken          = "El email ingresado ya está en uso"
	reasonAlreadyEnrolled     = "El estudiante ya se encuentra registrado en el curso"
	reasonUserFieldsMissing   = "El nombre, el email y la contraseña son obligatorios"
	reasonCourseFieldsMissing = "El nombre y la categoría del curso son obligatorios"
	reasonTopicFieldsMissing  = "El título y el mensaje son obligatorios"
	reasonReplyBodyMissing    = "La respuesta no puede estar vacía"
)
