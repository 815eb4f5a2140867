package uds

import (
	"io"
	"sort"
)

// CmdHnd is one admin console command
type CmdHnd struct {
	Desc  string
	Usage string
	Fn    func(args []string, w io.Writer) error
}

// CommandStore maps a command word to its handler
type CommandStore map[string]CmdHnd

// Names returns command words sorted
func (s CommandStore) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
