package svc

const (
	StateREADY = iota
	StateRUNNING
	StateSTOPPED
)

// Service is a long-running part of the app started and stopped by conf.Core.
// Start reports bootstrapping errors only. Done delivers the single shutdown
// result. conf.Core is its only reader, so implementations never close it.
type Service interface {
	Start() error
	Stop()
	Done() <-chan error
	Name() string
}
