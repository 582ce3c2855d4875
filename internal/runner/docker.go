package runner

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

const workspaceDir = "/workspace"

// DockerConfig holds configuration for the Docker executor
type DockerConfig struct {
	Timeout    time.Duration
	MemoryMB   int
	CPULimit   float64
	PidsLimit  int64
	NetworkOff bool
}

// DefaultDockerConfig returns default Docker executor configuration
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		Timeout:    15 * time.Second,
		MemoryMB:   256,
		CPULimit:   0.5,
		PidsLimit:  64,
		NetworkOff: true,
	}
}

// DockerExecutor runs each job in a fresh, network-less container
type DockerExecutor struct {
	client *client.Client
	config DockerConfig
}

// NewDockerExecutor connects to the Docker daemon from the environment
func NewDockerExecutor(cfg DockerConfig) (*DockerExecutor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker not reachable: %w", err)
	}

	return &DockerExecutor{client: cli, config: cfg}, nil
}

func (e *DockerExecutor) Name() string {
	return "docker"
}

// Execute creates a container, copies the program in, runs it and removes the container
func (e *DockerExecutor) Execute(ctx context.Context, job Job) (*Result, error) {
	langCfg, ok := job.Language.Config()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, job.Language)
	}

	if err := e.ensureImage(ctx, langCfg.DockerImage); err != nil {
		return nil, fmt.Errorf("ensure image: %w", err)
	}

	containerID, err := e.createContainer(ctx, job.Language, langCfg.DockerImage)
	if err != nil {
		return nil, err
	}
	defer e.destroyContainer(containerID)

	files := map[string]string{
		langCfg.FileName: job.Code,
		"stdin.txt":      job.Stdin,
	}
	if err := e.copyFiles(ctx, containerID, files); err != nil {
		return nil, fmt.Errorf("copy files: %w", err)
	}

	cmd := []string{"sh", "-c", runScript(langCfg.RunCommand, e.config.Timeout)}
	result, err := e.exec(ctx, containerID, cmd)
	if err != nil {
		return nil, err
	}

	result.Language = job.Language.String()
	result.Version = job.Version
	return result, nil
}

// runScript wraps the run command in a timeout with stdin redirected from stdin.txt
func runScript(runCommand string, timeout time.Duration) string {
	secs := int(timeout.Seconds())
	if secs <= 0 {
		secs = 15
	}
	return fmt.Sprintf("timeout %d sh -c %s < stdin.txt", secs, shellQuote(runCommand))
}

// shellQuote single-quotes s for sh
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (e *DockerExecutor) createContainer(ctx context.Context, lang Language, img string) (string, error) {
	containerCfg := &container.Config{
		Image:           img,
		Cmd:             []string{"sh", "-c", "while true; do sleep 3600; done"},
		WorkingDir:      workspaceDir,
		NetworkDisabled: e.config.NetworkOff,
		Tty:             false,
		Labels: map[string]string{
			"codedojo.runner": "true",
			"codedojo.lang":   lang.String(),
		},
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   int64(e.config.MemoryMB) * 1024 * 1024,
			NanoCPUs: int64(e.config.CPULimit * 1e9),
		},
	}
	if e.config.PidsLimit > 0 {
		limit := e.config.PidsLimit
		hostCfg.Resources.PidsLimit = &limit
	}

	resp, err := e.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}

	if err := e.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		e.destroyContainer(resp.ID)
		return "", fmt.Errorf("start container: %w", err)
	}

	return resp.ID, nil
}

func (e *DockerExecutor) copyFiles(ctx context.Context, containerID string, files map[string]string) error {
	archive, err := tarFiles(files)
	if err != nil {
		return err
	}
	return e.client.CopyToContainer(ctx, containerID, workspaceDir, archive, container.CopyToContainerOptions{})
}

// tarFiles packs files into an in-memory tar archive
func tarFiles(files map[string]string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for name, content := range files {
		header := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, fmt.Errorf("write tar header: %w", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return nil, fmt.Errorf("write tar content: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}
	return &buf, nil
}

func (e *DockerExecutor) exec(ctx context.Context, containerID string, cmd []string) (*Result, error) {
	// The in-container timeout fires first; this bounds a wedged daemon
	execCtx, cancel := context.WithTimeout(ctx, e.config.Timeout+10*time.Second)
	defer cancel()

	execResp, err := e.client.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   workspaceDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	start := time.Now()

	attachResp, err := e.client.ContainerExecAttach(execCtx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attachResp.Close()

	var outBuf bytes.Buffer
	_, _ = io.Copy(&outBuf, attachResp.Reader)

	duration := time.Since(start)

	inspectResp, err := e.client.ContainerExecInspect(execCtx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect exec: %w", err)
	}

	stdout, stderr := demuxOutput(outBuf.Bytes())

	return &Result{
		Output:   stdout + stderr,
		Stdout:   stdout,
		Stderr:   stderr,
		Code:     inspectResp.ExitCode,
		Duration: duration,
	}, nil
}

// destroyContainer uses its own context so cleanup survives a canceled request
func (e *DockerExecutor) destroyContainer(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	timeout := 2
	_ = e.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	if err := e.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		slog.Warn("failed to remove runner container", "container", containerID, "error", err)
	}
}

// Close closes the Docker client
func (e *DockerExecutor) Close() error {
	return e.client.Close()
}

func (e *DockerExecutor) ensureImage(ctx context.Context, img string) error {
	if _, err := e.client.ImageInspect(ctx, img); err == nil {
		return nil
	}

	reader, err := e.client.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", img, err)
	}
	defer reader.Close()
	// Drain the reader to complete the pull
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// demuxOutput separates Docker multiplexed stdout/stderr streams.
// Each frame has an 8-byte header: [type][0][0][0][size big-endian uint32],
// type 1 is stdout and 2 is stderr.
func demuxOutput(data []byte) (stdout, stderr string) {
	var outBuf, errBuf strings.Builder
	raw := data

	for len(data) >= 8 {
		streamType := data[0]
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]

		if size > len(data) {
			size = len(data)
		}

		chunk := string(data[:size])
		data = data[size:]

		switch streamType {
		case 1:
			outBuf.WriteString(chunk)
		case 2:
			errBuf.WriteString(chunk)
		}
	}

	// No frames: the stream was not multiplexed
	if outBuf.Len() == 0 && errBuf.Len() == 0 && len(raw) > 0 && (raw[0] < 1 || raw[0] > 2) {
		return string(raw), ""
	}

	return outBuf.String(), errBuf.String()
}
