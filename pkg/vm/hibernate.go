package vm

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrSnapshot reports a hibernation archive that cannot be restored.
var ErrSnapshot = errors.New("malformed snapshot")

// machineState is the JSON part of a hibernation archive. The code image and
// the frame arena are stored as separate binary entries.
type machineState struct {
	PC            int     `json:"pc"`
	PendingReturn int     `json:"pending_return"`
	Completed     bool    `json:"completed"`
	Stack         []int32 `json:"stack"`
	HighWater     int     `json:"stack_high_water"`
	FrameCurrent  int     `json:"frame_current"`
	FrameSize     int     `json:"frame_size"`
	FrameDepth    int     `json:"frame_depth"`
}

const (
	stateEntry  = "vm_state.json"
	codeEntry   = "code.bin"
	framesEntry = "frames.bin"
)

// HibernateToBytes captures the program image and all execution state in an
// in-memory ZIP archive. A VM stopped by its instruction limit can be
// hibernated and later resumed at the instruction it stopped on.
func (v *VM) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		PC:            v.PC,
		PendingReturn: v.pendingReturn,
		Completed:     v.Completed,
		Stack:         v.stack.Values(),
		HighWater:     v.stack.HighWater(),
		FrameCurrent:  v.frames.current,
		FrameSize:     v.frames.size,
		FrameDepth:    v.frames.depth,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal vm state")
	}
	if err := writeZipEntry(zw, stateEntry, jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, codeEntry, v.code); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, framesEntry, v.frames.buf); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "close zip")
	}
	v.log.Debug("hibernated", zap.Int("pc", v.PC), zap.Int("depth", v.frames.depth), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// RestoreFromBytes replaces the VM's program and state with an archive made
// by HibernateToBytes. The instruction counter starts again from zero. On
// error the VM is left as it was.
func (v *VM) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrapf(ErrSnapshot, "open zip: %v", err)
	}
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, stateEntry)
	if err != nil {
		return err
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return errors.Wrapf(ErrSnapshot, "unmarshal vm state: %v", err)
	}
	code, err := readZipEntry(fileMap, codeEntry)
	if err != nil {
		return err
	}
	arena, err := readZipEntry(fileMap, framesEntry)
	if err != nil {
		return err
	}

	stack := NewStack(v.stack.capacity)
	if err := stack.restore(state.Stack, state.HighWater); err != nil {
		return err
	}
	frames := &FrameArena{max: v.frames.max}
	if err := frames.restore(arena, state.FrameCurrent, state.FrameSize, state.FrameDepth); err != nil {
		return err
	}

	v.stack = stack
	v.frames = frames
	v.code = code
	v.PC = state.PC
	v.pendingReturn = state.PendingReturn
	v.Completed = state.Completed
	v.Halted = state.Completed
	v.steps = 0
	v.log.Debug("restored", zap.Int("pc", v.PC), zap.Int("depth", v.frames.depth))
	return nil
}

// HibernateToFile writes the hibernation archive to path on fs.
func (v *VM) HibernateToFile(fs afero.Fs, path string) error {
	data, err := v.HibernateToBytes()
	if err != nil {
		return err
	}
	return errors.Wrapf(afero.WriteFile(fs, path, data, 0o644), "write %s", path)
}

// RestoreFromFile reads a hibernation archive from path on fs.
func (v *VM) RestoreFromFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return errors.Wrap(v.RestoreFromBytes(data), path)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create zip entry %q", name)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, errors.Wrapf(ErrSnapshot, "zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open zip entry %q", name)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
