package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// StagingArea materializes introspected operations into PL capability
// bodies under a per-server staging path (spec §4.I "a staging stage that
// materialises PL capability files into pending/<server>/…"). Write is a
// caller-supplied sink (filesystem, object store, or an in-memory map in
// tests) rather than a hardcoded os.WriteFile, matching the teacher's
// storage-interface-over-concrete-fs pattern (storage/entity.go).
type StagingArea struct {
	BaseDir string
	Write   func(path string, contents []byte) error
}

func NewStagingArea(baseDir string, write func(path string, contents []byte) error) *StagingArea {
	return &StagingArea{BaseDir: baseDir, Write: write}
}

// Stage writes one StagedCapability per introspected Operation and returns
// them for the approval stage to enqueue.
func (s *StagingArea) Stage(_ context.Context, server string, introspection *IntrospectionResult) ([]StagedCapability, error) {
	if s.Write == nil {
		return nil, ccoserr.New(ccoserr.KindInternalError, "staging area has no write sink configured")
	}
	staged := make([]StagedCapability, 0, len(introspection.Operations))
	now := time.Now()
	for _, op := range introspection.Operations {
		body := capabilityBody(server, op)
		path := fmt.Sprintf("%s/pending/%s/%s.pl", strings.TrimRight(s.BaseDir, "/"), server, sanitize(op.ID))
		if err := s.Write(path, []byte(body)); err != nil {
			return nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "staging capability %q failed", op.ID)
		}
		staged = append(staged, StagedCapability{
			Server: server, ID: op.ID, PLSource: body, StagedAt: now, FromKind: introspection.Kind,
		})
	}
	return staged, nil
}

func capabilityBody(server string, op Operation) string {
	return fmt.Sprintf(`(call :%s.%s {%s})`, server, op.ID, inputHintMap(op.InputHint))
}

func inputHintMap(hint string) string {
	if hint == "" {
		return ""
	}
	return fmt.Sprintf(":input %q", hint)
}

func sanitize(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
