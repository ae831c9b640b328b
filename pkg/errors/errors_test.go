package errors_test

import (
	stderrors "errors"
	"testing"

	recallerr "github.com/hyperjump/chunkrecall/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CarriesCodeAndFields(t *testing.T) {
	err := recallerr.New(recallerr.CodeCollectorQueryInvalidInput, "n_initial too small",
		recallerr.Field("n_initial", 1),
		recallerr.Field("n_results", 3),
	)
	require.Error(t, err)
	assert.Equal(t, recallerr.CodeCollectorQueryInvalidInput, recallerr.CodeOf(err))
	assert.True(t, recallerr.HasCode(err, recallerr.CodeCollectorQueryInvalidInput))

	fields := recallerr.FieldsOf(err)
	assert.Equal(t, 1, fields["n_initial"])
	assert.Equal(t, 3, fields["n_results"])
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := recallerr.Wrap(cause, recallerr.CodeIndexUpstreamFailure, "querying index")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, recallerr.IsCollaborator(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, recallerr.Wrap(nil, recallerr.CodeIndexUpstreamFailure, "x"))
	assert.NoError(t, recallerr.Wrapf(nil, recallerr.CodeIndexUpstreamFailure, "x %d", 1))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name          string
		code          recallerr.Code
		validation    bool
		configuration bool
		state         bool
		collaborator  bool
	}{
		{"query invalid input", recallerr.CodeCollectorQueryInvalidInput, true, false, false, false},
		{"add conflict", recallerr.CodeCollectorAddConflict, false, false, true, false},
		{"unknown embedder", recallerr.CodeEmbeddingFactoryUnsupported, false, true, false, false},
		{"unknown index", recallerr.CodeIndexFactoryUnsupported, false, true, false, false},
		{"config value", recallerr.CodeConfigValidateInvalidValue, false, true, false, false},
		{"config format", recallerr.CodeConfigParseInvalidFormat, false, true, false, false},
		{"embedder failure", recallerr.CodeEmbeddingUpstreamFailure, false, false, false, true},
		{"index failure", recallerr.CodeIndexUpstreamFailure, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := recallerr.New(tt.code, "boom")
			assert.Equal(t, tt.validation, recallerr.IsValidation(err), "IsValidation")
			assert.Equal(t, tt.configuration, recallerr.IsConfiguration(err), "IsConfiguration")
			assert.Equal(t, tt.state, recallerr.IsState(err), "IsState")
			assert.Equal(t, tt.collaborator, recallerr.IsCollaborator(err), "IsCollaborator")
		})
	}
}

func TestPredicates_UncodedError(t *testing.T) {
	err := stderrors.New("plain")
	assert.Equal(t, recallerr.Code(""), recallerr.CodeOf(err))
	assert.False(t, recallerr.IsValidation(err))
	assert.False(t, recallerr.IsConfiguration(err))
	assert.False(t, recallerr.IsState(err))
	assert.False(t, recallerr.IsCollaborator(err))
	assert.Nil(t, recallerr.FieldsOf(err))
}
