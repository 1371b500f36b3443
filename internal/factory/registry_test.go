package factory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/forgeq/forgeq/internal/job"
)

type echoJob struct {
	Msg string `json:"msg"`
}

func (e *echoJob) Perform() error { return nil }

func echoConstructor(args json.RawMessage) (Executable, error) {
	var e echoJob
	if err := DecodeArguments(args, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func TestRegistryCreateDispatchesByClass(t *testing.T) {
	r := NewRegistry()
	r.Register("EchoJob", echoConstructor)

	d := job.New("EchoJob", json.RawMessage(`{"msg":"hi"}`), "abc")
	exec, err := r.Create(d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	e, ok := exec.(*echoJob)
	if !ok {
		t.Fatalf("Create returned %T, want *echoJob", exec)
	}
	if e.Msg != "hi" {
		t.Errorf("Msg = %q, want %q", e.Msg, "hi")
	}
}

func TestRegistryCreateUnknownClassIsInvalidJob(t *testing.T) {
	r := NewRegistry()
	d := job.New("Nonexistent", nil, "abc")

	_, err := r.Create(d)
	var invalid *ErrInvalidJob
	if !errors.As(err, &invalid) {
		t.Fatalf("Create error = %v, want *ErrInvalidJob", err)
	}
}

func TestRegistryCreateConstructorErrorIsInvalidJob(t *testing.T) {
	r := NewRegistry()
	r.Register("Broken", func(json.RawMessage) (Executable, error) {
		return nil, errors.New("boom")
	})

	d := job.New("Broken", nil, "abc")
	_, err := r.Create(d)
	var invalid *ErrInvalidJob
	if !errors.As(err, &invalid) {
		t.Fatalf("Create error = %v, want *ErrInvalidJob", err)
	}
}

func TestDecodeArgumentsPlainJSON(t *testing.T) {
	var e echoJob
	if err := DecodeArguments(json.RawMessage(`{"msg":"plain"}`), &e); err != nil {
		t.Fatalf("DecodeArguments: %v", err)
	}
	if e.Msg != "plain" {
		t.Errorf("Msg = %q, want %q", e.Msg, "plain")
	}
}
