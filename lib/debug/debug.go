package debug

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"atomkit/lib/chars"
)

const DefaultLength = 4

// Debugger hands out ids like `name-0001` and saves debug payloads to
// `<dir>/<id>.debug`.
type Debugger struct {
	dir    string
	name   string
	length int

	mutex sync.Mutex
	id    int
}

// New creates a Debugger, an empty name is replaced by a random one and a
// length <= 0 means DefaultLength.
func New(dir, name string, length int) (*Debugger, error) {
	if length <= 0 {
		length = DefaultLength
	}
	if name == "" {
		rnd, err := chars.RandomString(length, chars.Upper)
		if err != nil {
			return nil, err
		}
		name = rnd
	}
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return nil, fmt.Errorf("debugger: %w", err)
	}
	return &Debugger{dir: dir, name: name, length: length}, nil
}

func (d *Debugger) Name() string {
	return d.name
}

func (d *Debugger) format(id int) string {
	return fmt.Sprintf("%s-%0*d", d.name, d.length, id)
}

// ID returns the current id.
func (d *Debugger) ID() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.format(d.id)
}

// Next advances to a new id and returns it.
func (d *Debugger) Next() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.id++
	return d.format(d.id)
}

// File returns the path the current id is saved to.
func (d *Debugger) File() string {
	return filepath.Join(d.dir, d.ID()+".debug")
}

// Save writes data under the current id, strings and byte slices are
// written as is and everything else as indented json.
func (d *Debugger) Save(data any) error {
	var contents []byte
	switch value := data.(type) {
	case string:
		contents = []byte(value)
	case []byte:
		contents = value
	default:
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			contents = []byte(fmt.Sprint(value))
		} else {
			contents = encoded
		}
	}

	file := d.File()
	err := os.WriteFile(file, contents, 0644)
	if err != nil {
		return fmt.Errorf("save debug: %w", err)
	}
	slog.Debug("save debug", "file", file)
	return nil
}

// Write saves contents under a fresh id, the given id is attached as a
// header line. This lets a Debugger receive http message dumps.
func (d *Debugger) Write(id string, contents string) {
	d.Next()
	var out strings.Builder
	out.WriteString("# ")
	out.WriteString(id)
	out.WriteString("\n\n")
	out.WriteString(contents)
	err := d.Save(out.String())
	if err != nil {
		slog.Warn("failed to write debug message", "id", id, "err", err)
	}
}
