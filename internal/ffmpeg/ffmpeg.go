package ffmpeg

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"
)

var _ io.WriteCloser = (*Process)(nil)

// Process is a running FFMPEG tool reading raw PCM from stdin.
type Process struct {
	stdin io.WriteCloser
	cmd   *exec.Cmd
	wg    errgroup.Group
}

// start runs the named tool with arguments, forwarding its output as debug
// logs.
func start(name string, arguments ...string) (*Process, error) {
	cmd := exec.Command(name, arguments...)
	// Run the tool in a separate process group to keep it from listening on
	// signals sent to the host process.
	// NOTE: Does not work on Windows
	cmd.SysProcAttr = &syscall.SysProcAttr{Pgid: 0, Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	reader, writer := io.Pipe()
	cmd.Stdout = writer
	cmd.Stderr = writer

	slog.Debug("Starting process", slog.String("component", name))
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	process := &Process{
		stdin: stdin,
		cmd:   cmd,
	}

	// Output the tool's logs as debug logs
	process.wg.Go(func() error {
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			slog.Debug(scanner.Text(), slog.String("component", name))
		}
		return nil
	})

	process.wg.Go(func() error {
		defer writer.Close()

		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 255 {
			// Exit code used when interrupted
			return nil
		}
		return err
	})

	return process, nil
}

// Write implements io.Writer.
func (p *Process) Write(d []byte) (int, error) {
	return p.stdin.Write(d)
}

// Close implements io.Closer. Closes stdin and waits for the process to exit.
func (p *Process) Close() error {
	p.stdin.Close()
	return p.wg.Wait()
}

// Kill immediately kills the process.
func (p *Process) Kill() {
	p.cmd.Process.Kill()
}

// inputArguments returns the arguments describing raw interleaved stereo
// 16-bit PCM on stdin.
func inputArguments(sampleRate int, bigEndian bool) []string {
	format := "s16le"
	if bigEndian {
		format = "s16be"
	}

	return []string{
		"-f", format,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "2",
		"-i", "pipe:",
	}
}

// NewEncoder starts FFMPEG, encoding PCM written to the returned process into
// the file at path. The output format is chosen from the file extension.
func NewEncoder(path string, sampleRate int, bigEndian bool) (*Process, error) {
	arguments := []string{"-hide_banner"}
	arguments = append(arguments, inputArguments(sampleRate, bigEndian)...)
	arguments = append(arguments, "-y", path)
	return start("ffmpeg", arguments...)
}
