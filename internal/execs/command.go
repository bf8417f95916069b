/*
Package execs runs external commands on behalf of rule expressions. A
command config names a program plus arguments; the literal argument "{}"
is substituted with the job's current URL at invocation time.
*/
package execs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/urlwash/urlwash/internal/types"
)

// Command is a runnable external command configuration.
type Command struct {
	// Program is the executable name or path.
	Program string `json:"program"`
	// Args are the command line arguments. The literal "{}" is replaced
	// with the current URL.
	Args []string `json:"args,omitempty"`
	// Dir is the working directory. Empty means the caller's.
	Dir string `json:"dir,omitempty"`
	// Env holds extra environment variables layered over the caller's.
	Env map[string]string `json:"env,omitempty"`
}

// UnmarshalJSON accepts either a bare program name or the full struct.
func (c *Command) UnmarshalJSON(data []byte) error {
	var program string
	if err := json.Unmarshal(data, &program); err == nil {
		*c = Command{Program: program}
		return nil
	}
	type raw Command
	var decoded raw
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = Command(decoded)
	return nil
}

// Exists reports whether the program resolves on PATH (or as a direct
// path). Resolution failure is a negative answer, not an error.
func (c *Command) Exists() bool {
	_, err := exec.LookPath(c.Program)
	return err == nil
}

func (c *Command) build(url string) *exec.Cmd {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		if a == "{}" {
			args[i] = url
		} else {
			args[i] = a
		}
	}
	cmd := exec.Command(c.Program, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

// ExitCode runs the command and returns its exit code. A command that
// terminates without one (killed by a signal) yields ErrNoExitCode.
func (c *Command) ExitCode(url string) (int, error) {
	cmd := c.build(url)
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 0, types.ErrNoExitCode
	default:
		return 0, fmt.Errorf("run %s: %w", c.Program, err)
	}
}

// Output runs the command and returns its stdout with the trailing
// newline stripped. A non-zero exit is an error.
func (c *Command) Output(url string) (string, error) {
	cmd := c.build(url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("run %s: %w: %s", c.Program, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("run %s: %w", c.Program, err)
	}
	return strings.TrimSuffix(stdout.String(), "\n"), nil
}

func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}
