package registry

import (
	"context"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gopkg.in/yaml.v3"

	"github.com/nocsim/nocsim/noc/simerr"
)

// CtgTask is one task record as loaded from a CTG descriptor: an id, an
// execution time in seconds, and outbound dependency volumes in bits
// keyed by destination task id.
type CtgTask struct {
	ID            string
	ExecutionTime float64 // seconds
	Outbound      map[string]int64
}

// Apcg is an Application Characterization Graph: a flat list of tasks.
type Apcg struct {
	Tasks []CtgTask
}

// Mapping assigns task ids to node ids.
type Mapping map[string]int

// TaskLoader is the opaque producer of CTG/APCG/mapping records spec.md
// §6 defines; this package places no schema constraints on it beyond what
// the spec requires.
type TaskLoader interface {
	LoadCTG(path string) (Apcg, error)
	LoadAPCG(path string) (Apcg, error)
	LoadMapping(path string) (Mapping, error)
}

// FileTaskLoader reads CTG/APCG/mapping descriptors from disk, retrying
// transient read failures with bounded exponential backoff before
// surfacing a ConfigurationError. Grounded on yanet2's bird-adapter
// service.go reconnect-with-backoff pattern: the file may be mid-write by
// a concurrent mapper tool in a real deployment, so a missing file (ENOENT)
// is treated as transient and retried, up to 5 tries; any other read error
// is returned without retrying.
type FileTaskLoader struct {
	Parse func(data []byte) (Apcg, error)
}

func (l FileTaskLoader) retryRead(path string) ([]byte, error) {
	op := func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, err // retryable: backoff.Retry distinguishes via the returned error only when wrapped Permanent
			}
			return nil, backoff.Permanent(err)
		}
		return data, nil
	}
	return backoff.Retry(context.Background(), op,
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     50 * time.Millisecond,
			RandomizationFactor: backoff.DefaultRandomizationFactor,
			Multiplier:          backoff.DefaultMultiplier,
			MaxInterval:         time.Second,
		}),
		backoff.WithMaxTries(5),
	)
}

func (l FileTaskLoader) LoadCTG(path string) (Apcg, error) {
	return l.load(path)
}

func (l FileTaskLoader) LoadAPCG(path string) (Apcg, error) {
	return l.load(path)
}

func (l FileTaskLoader) load(path string) (Apcg, error) {
	data, err := l.retryRead(path)
	if err != nil {
		return Apcg{}, simerr.Wrap(simerr.ConfigurationError, err, "loading task descriptor %s", path)
	}
	if l.Parse == nil {
		return Apcg{}, simerr.New(simerr.ConfigurationError, "FileTaskLoader.Parse is nil for %s", path)
	}
	return l.Parse(data)
}

// apcgDocument is the on-disk YAML shape ParseApcgYAML decodes: a flat
// task list, each with an execution time in seconds and an outbound
// dependency map keyed by destination task id.
type apcgDocument struct {
	Tasks []struct {
		ID            string           `yaml:"id"`
		ExecutionTime float64          `yaml:"execution_time"`
		Outbound      map[string]int64 `yaml:"outbound"`
	} `yaml:"tasks"`
}

// ParseApcgYAML decodes a YAML APCG/CTG descriptor. Assigned to
// FileTaskLoader.Parse by callers that use YAML task files (cmd/root.go);
// kept as a free function rather than a FileTaskLoader method since
// nothing about it depends on file I/O.
func ParseApcgYAML(data []byte) (Apcg, error) {
	var doc apcgDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Apcg{}, simerr.Wrap(simerr.ConfigurationError, err, "parsing APCG/CTG YAML")
	}
	apcg := Apcg{Tasks: make([]CtgTask, len(doc.Tasks))}
	for i, t := range doc.Tasks {
		apcg.Tasks[i] = CtgTask{ID: t.ID, ExecutionTime: t.ExecutionTime, Outbound: t.Outbound}
	}
	return apcg, nil
}

func (l FileTaskLoader) LoadMapping(path string) (Mapping, error) {
	data, err := l.retryRead(path)
	if err != nil {
		return nil, simerr.Wrap(simerr.ConfigurationError, err, "loading mapping file %s", path)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, simerr.Wrap(simerr.ConfigurationError, err, "parsing mapping file %s", path)
	}
	return m, nil
}
