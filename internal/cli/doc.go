// Package cli implements the ipmicollect command-line interface.
//
// The root command is the collector itself: it polls every configured BMC
// each interval and writes PUTVAL lines to stdout for the collectd exec
// plugin. Subcommands help set it up:
//
//	ipmicollect [host...]        - Poll forever, emitting PUTVAL lines
//	ipmicollect check [host...]  - Run one cycle and print a table
//	ipmicollect doctor           - Check config, jump host and sensor tool
//	ipmicollect init             - Write a config file
//	ipmicollect version          - Print build information
//
// # Flag Handling
//
// Collector settings (--interval, --workers, --sensors, ...) are persistent
// flags on the root command, so check accepts them too. They are bound to
// the viper config keys in config.FlagKeys and only override the file and
// environment when set explicitly.
//
// # Output
//
// stdout carries PUTVAL lines only. Logs, tables for humans and errors go
// to stderr, except for check, which writes its table to stdout.
package cli
