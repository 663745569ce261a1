package loadshape

// Logger receives lifecycle and fault reports from the concurrent Runner.
// It is deliberately narrow so hosts can hand in whatever they already use;
// *zap.SugaredLogger satisfies it directly. The default discards everything.
type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
