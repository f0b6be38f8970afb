package dvid

import (
	"fmt"
	"strconv"
	"strings"
)

// Command supports command-line interaction with the pixels tool.  The first item
// is the command name.  The other arguments are positional command arguments or
// optional settings of the form "<key>=<value>".
type Command []string

// String returns a space-separated command line
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument which is assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0]
}

// Parameter scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Parameter(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.SplitN(arg, "=", 2)
			if len(elems) == 2 && elems[0] == key {
				value = elems[1]
				found = true
				return
			}
		}
	}
	return
}

// IntParameter returns the integer value of a "key=value" argument or the
// default if the key isn't present.
func (cmd Command) IntParameter(key string, defaultValue int) (int, error) {
	s, found := cmd.Parameter(key)
	if !found {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad %s setting %q: %w", key, s, err)
	}
	return i, nil
}

// CommandArgs sets a variadic argument set of string pointers to command
// arguments, ignoring setting arguments of the form "<key>=<value>".
// If there aren't enough arguments to set a target, the target is set to the
// empty string.  It returns an 'overflow' slice that has all arguments
// beyond those needed for targets.
func (cmd Command) CommandArgs(targets ...*string) (overflow []string) {
	overflow = make([]string, 0, len(cmd))
	for _, target := range targets {
		*target = ""
	}
	if len(cmd) < 2 {
		return
	}
	var curTarget int
	for _, arg := range cmd[1:] {
		if strings.Contains(arg, "=") {
			continue
		}
		if curTarget >= len(targets) {
			overflow = append(overflow, arg)
		} else {
			*(targets[curTarget]) = arg
		}
		curTarget++
	}
	return
}

// IDArgs parses every positional argument as a pixel set identifier.
func (cmd Command) IDArgs() ([]uint64, error) {
	args := cmd.CommandArgs()
	ids := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad pixels id %q: %w", arg, ErrInvalidID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
