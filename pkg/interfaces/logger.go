package interfaces

// Logger is the minimal logging contract used throughout the pipeline.
type Logger interface {
	Info(message string)
	Error(message string)
	Warn(message string)
	Debug(message string)
}
