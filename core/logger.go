package core

// Logger is any service that can log & report app events.
// expected args: error, map[string]interface{}, or a value identifying the acting person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user on whose behalf an event is logged.
type Person struct {
	ID    string
	Name  string
	Email string
}
