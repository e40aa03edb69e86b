package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	rows map[string][]map[string]any
}

func (s stubRunner) Run(context.Context, string, map[string]any) error { return nil }

func (s stubRunner) Query(_ context.Context, _ string, params map[string]any) ([]map[string]any, error) {
	return s.rows[params["read"].(string)], nil
}

func TestPrintHits(t *testing.T) {
	runner := stubRunner{rows: map[string][]map[string]any{
		"read_1": {{"subject": "WP_B", "file": "run1.maf", "rank": int64(1), "bitScore": 55.3, "expect": 1e-20, "identity": 0.9}},
	}}
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, printHits(context.Background(), cmd, runner, []string{"read_1", "read_9"}, 5))
	assert.Equal(t, "read_1\tWP_B\trun1.maf\t1\t55.3\t1e-20\t90.00\nread_9\n", out.String())
}
