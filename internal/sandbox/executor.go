// Package sandbox runs commands inside a disposable, network-isolated
// Docker container with a hard wall-clock deadline. It backs the
// auto-fix engine's install/test steps (spec.md §4.6).
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
)

// Mount is a single bind mount into the sandbox container.
type Mount struct {
	Source   string // host path
	Target   string // container path
	ReadOnly bool
}

// Request describes one sandboxed command execution.
type Request struct {
	Image     string
	Command   []string
	Workdir   string
	Env       map[string]string
	Mounts    []Mount
	TimeoutMs int
}

// Result is the outcome of a sandboxed run. A non-zero ExitCode is not
// itself an error — callers inspect it to decide pass/fail.
type Result struct {
	ExitCode int
	Output   string
	TimedOut bool
}

// Executor runs Requests as one-shot, disposable containers.
type Executor struct{}

// New returns an Executor backed by the process-wide Docker client.
func New() *Executor {
	return &Executor{}
}

// Run creates a container from req.Image, starts it with networking
// disabled, waits up to req.TimeoutMs for it to exit, and kills it on
// timeout. Output is the merged stdout+stderr stream.
func (e *Executor) Run(ctx context.Context, req Request) (Result, error) {
	if req.TimeoutMs <= 0 {
		return Result{}, fmt.Errorf("sandbox: timeoutMs must be positive")
	}
	cli, err := dockerClient()
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: docker client: %w", err)
	}

	env := make([]string, 0, len(req.Env))
	for k, v := range req.Env {
		env = append(env, k+"="+v)
	}

	mounts := make([]mount.Mount, 0, len(req.Mounts))
	for _, m := range req.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	cfg := &container.Config{
		Image:      req.Image,
		Cmd:        req.Command,
		Env:        env,
		WorkingDir: req.Workdir,
	}
	hostCfg := &container.HostConfig{
		NetworkMode: "none",
		Mounts:      mounts,
	}

	resp, err := cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: create container: %w", err)
	}
	containerID := resp.ID
	defer func() {
		cleanCtx := context.Background()
		cli.ContainerRemove(cleanCtx, containerID, container.RemoveOptions{Force: true})
	}()

	if err := cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("sandbox: start container: %w", err)
	}

	deadline, cancel := context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
	defer cancel()

	waitCh, errCh := cli.ContainerWait(deadline, containerID, container.WaitConditionNotRunning)

	var out bytes.Buffer
	logsDone := make(chan error, 1)
	go func() {
		reader, err := cli.ContainerLogs(context.Background(), containerID, container.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Follow:     true,
		})
		if err != nil {
			logsDone <- err
			return
		}
		defer reader.Close()
		_, err = stdcopy.StdCopy(&out, &out, reader)
		logsDone <- err
	}()

	select {
	case result := <-waitCh:
		<-logsDone
		return Result{ExitCode: int(result.StatusCode), Output: out.String()}, nil
	case err := <-errCh:
		<-logsDone
		return Result{}, fmt.Errorf("sandbox: container wait: %w", err)
	case <-deadline.Done():
		_ = cli.ContainerKill(context.Background(), containerID, "SIGKILL")
		<-logsDone
		return Result{TimedOut: true, Output: out.String(), ExitCode: -1}, nil
	}
}
