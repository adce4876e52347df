package constraint

import (
	"log/slog"
	"runtime"
)

// settings collects the optional collaborators before construction.
type settings struct {
	log      *slog.Logger
	threads  int
	fatal    FatalFunc
	sink     DiagnosticsSink
	puller   Puller
	ed       EssentialDynamics
	comm     DomainComm
}

func defaultSettings() settings {
	return settings{
		log:     slog.Default(),
		threads: runtime.GOMAXPROCS(0),
		fatal:   defaultFatal,
	}
}

// Option configures New. Options panic on nonsensical values; a nil
// collaborator is a programmer error, not a runtime condition.
type Option func(*settings)

// WithLogger sets the structured log target.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic(panicNilOption)
	}
	return func(s *settings) { s.log = l }
}

// WithThreads fixes the triplet worker-pool size.
func WithThreads(n int) Option {
	if n <= 0 {
		panic(panicBadThreads)
	}
	return func(s *settings) { s.threads = n }
}

// WithFatalFunc replaces the fatal-escalation hook.
func WithFatalFunc(f FatalFunc) Option {
	if f == nil {
		panic(panicNilOption)
	}
	return func(s *settings) { s.fatal = f }
}

// WithDiagnosticsSink sets the failure-dump target.
func WithDiagnosticsSink(d DiagnosticsSink) Option {
	if d == nil {
		panic(panicNilOption)
	}
	return func(s *settings) { s.sink = d }
}

// WithPuller attaches the constraint-based pulling collaborator.
func WithPuller(p Puller) Option {
	if p == nil {
		panic(panicNilOption)
	}
	return func(s *settings) { s.puller = p }
}

// WithEssentialDynamics attaches the essential-dynamics collaborator.
func WithEssentialDynamics(e EssentialDynamics) Option {
	if e == nil {
		panic(panicNilOption)
	}
	return func(s *settings) { s.ed = e }
}

// WithDomainComm attaches the domain-decomposition exchange primitive.
func WithDomainComm(c DomainComm) Option {
	if c == nil {
		panic(panicNilOption)
	}
	return func(s *settings) { s.comm = c }
}
