// Package logger wraps go.uber.org/zap with a global sugared logger whose
// level can be changed at runtime, plus helpers that pick the logger out of a
// context.Context.
package logger
