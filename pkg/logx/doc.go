// Package logx provides a small structured logging facade over zerolog.
//
// Components receive a Logger and attach fixed fields via With(). The Service
// owns the sinks (console, optional JSON file) and can swap level/outputs at
// runtime without invalidating loggers already handed out.
package logx
