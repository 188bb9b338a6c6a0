// Package bootstrap runs the agent's lifecycle: logger and meter setup,
// component start in registration order, hooks, a startup summary, and a
// graceful stop on SIGINT or SIGTERM.
//
// Long-running commands use Run; finite flows such as enrollment use RunTask,
// which cancels the task on a signal and then stops the components.
package bootstrap
