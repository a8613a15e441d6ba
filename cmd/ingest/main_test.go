package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"avinfo/internal/ingest"
)

type runRecorder struct {
	modes []ingest.Mode
	code  int
}

func (r *runRecorder) run(_ context.Context, mode ingest.Mode) int {
	r.modes = append(r.modes, mode)
	return r.code
}

func TestExecute_Modes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want ingest.Mode
	}{
		{name: "default", args: nil, want: ingest.ModeNormal},
		{name: "explicit normal", args: []string{"--mode", "normal"}, want: ingest.ModeNormal},
		{name: "mode archive", args: []string{"--mode=archive"}, want: ingest.ModeArchive},
		{name: "archive shorthand", args: []string{"--archive"}, want: ingest.ModeArchive},
		{name: "shorthand wins", args: []string{"--mode", "normal", "--archive"}, want: ingest.ModeArchive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &runRecorder{}
			code := execute(context.Background(), tt.args, rec.run)
			assert.Equal(t, 0, code)
			assert.Equal(t, []ingest.Mode{tt.want}, rec.modes)
		})
	}
}

func TestExecute_RejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"--mode", "backfill"},
		{"--unknown"},
		{"extra-arg"},
	} {
		rec := &runRecorder{}
		assert.Equal(t, 2, execute(context.Background(), args, rec.run), args)
		assert.Empty(t, rec.modes, args)
	}
}

func TestExecute_PassesRunExitCode(t *testing.T) {
	rec := &runRecorder{code: 1}
	assert.Equal(t, 1, execute(context.Background(), nil, rec.run))

	rec = &runRecorder{code: 0}
	assert.Equal(t, 0, execute(context.Background(), []string{"--archive"}, rec.run))
}
