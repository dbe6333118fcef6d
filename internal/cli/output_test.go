package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

func TestOutputFormatter_Success(t *testing.T) {
	data := map[string]int{"total": 3}

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Success(data, nil))

		var resp struct {
			Status string         `json:"status"`
			Data   map[string]int `json:"data"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, 3, resp.Data["total"])
	})

	t.Run("yaml", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "yaml", Writer: buf}
		require.NoError(t, f.Success(data, nil))

		var resp struct {
			Status string         `yaml:"status"`
			Data   map[string]int `yaml:"data"`
		}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, 3, resp.Data["total"])
	})

	t.Run("text uses render", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, f.Success(data, func(w io.Writer) error {
			_, err := io.WriteString(w, "three\n")
			return err
		}))
		assert.Equal(t, "three\n", buf.String())
	})
}

func TestOutputFormatter_Error(t *testing.T) {
	t.Run("text goes to err writer", func(t *testing.T) {
		out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
		require.NoError(t, f.Error(apperror.ErrForbidden))

		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "Error [FORBIDDEN]")
	})

	t.Run("plain errors get a generic code", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Error(errors.New("disk on fire")))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "ERROR", resp.Error.Code)
		assert.Equal(t, "disk on fire", resp.Error.Message)
	})
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := WrapExitError(ExitFailure, "submit failed", apperror.ErrForbidden)
	assert.True(t, errors.Is(wrapped, apperror.ErrForbidden))
	assert.False(t, Reported(wrapped))
	assert.True(t, Reported(reported(wrapped)))
}
