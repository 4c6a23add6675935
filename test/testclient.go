// testclient drives a ptybridge binary the way an embedding application
// does: commands go in on stdin, output comes back on stdout, and
// window-size records are written to the child's descriptor 3.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/pflag"

	"github.com/PiranhaCodes/ptybridge/internal/relay"
)

func main() {
	binary := pflag.String("bridge", "ptybridge", "path to the ptybridge binary")
	shell := pflag.String("shell", "/bin/sh", "shell passed to the bridge")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := drive(logger, *binary, *shell); err != nil {
		logger.Error("test client failed", "error", err)
		os.Exit(1)
	}
}

func drive(logger *slog.Logger, binary, shell string) error {
	resizeReader, resizeWriter, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create resize pipe: %w", err)
	}

	cmd := exec.Command(binary, "--log-level", "debug", shell)
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{resizeReader}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	resizeReader.Close()
	logger.Info("bridge started", "pid", cmd.Process.Pid)

	outputDone := make(chan struct{})
	go func() {
		defer close(outputDone)
		if _, err := io.Copy(os.Stdout, stdout); err != nil {
			logger.Warn("read bridge output", "error", err)
		}
	}()

	record, _ := relay.Winsize{Rows: 40, Cols: 120}.MarshalBinary()
	if _, err := resizeWriter.Write(record); err != nil {
		return fmt.Errorf("send window size: %w", err)
	}

	commands := []string{
		"stty size\n",
		"echo \"TERM=$TERM\"\n",
		"echo \"$PTYBRIDGE_SESSION\"\n",
	}
	for i, command := range commands {
		logger.Info("sending command", "index", i+1, "command", command)
		if _, err := io.WriteString(stdin, command); err != nil {
			return fmt.Errorf("write command: %w", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	// Dropping the resize channel must leave the session usable.
	resizeWriter.Close()
	if _, err := io.WriteString(stdin, "echo 'still alive'\nexit\n"); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	<-outputDone
	err = cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("bridge exited with status %d", exitErr.ExitCode())
	}
	if err != nil {
		return fmt.Errorf("wait for bridge: %w", err)
	}
	logger.Info("bridge exited cleanly")
	return nil
}
