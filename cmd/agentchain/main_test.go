package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchain/config"
	"github.com/hupe1980/agentchain/model"
	"github.com/hupe1980/agentchain/workflow"
)

func newTestApp(llm model.Model, key string) (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	a := &app{
		newModel: func(config.ProviderConfig, string) (model.Model, error) { return llm, nil },
		resolveKey: func(p config.ProviderConfig) (string, error) {
			if key == "" {
				return "", errors.New(p.APIKeyEnv + " must be set")
			}
			return key, nil
		},
		stdout: &stdout,
		stderr: &stderr,
	}
	return a, &stdout, &stderr
}

func TestRun_DefaultWorkflow(t *testing.T) {
	llm := model.NewScriptedModel("m",
		model.Reply("$84 <DONE>"),
		model.Reply("AGREE <DONE>"),
	)
	a, stdout, _ := newTestApp(llm, "sk-test")

	cmd := a.rootCmd()
	cmd.SetArgs([]string{"run", "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "AGREE \n", stdout.String())
	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, config.DefaultTask, reqs[0].Messages[1].Content)
}

func TestRun_Trace(t *testing.T) {
	llm := model.NewScriptedModel("m", model.Reply("one <DONE>"), model.Reply("two <DONE>"))
	a, stdout, _ := newTestApp(llm, "sk-test")

	cmd := a.rootCmd()
	cmd.SetArgs([]string{"run", "--trace", "--task", "go", "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	var res workflow.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Equal(t, "two ", res.Output)
	require.Len(t, res.Trace, 2)
	assert.Equal(t, "The Working Agent", res.Trace[0].Agent)
}

func TestRun_MissingAPIKey(t *testing.T) {
	llm := model.NewScriptedModel("m")
	a, _, stderr := newTestApp(llm, "")

	cmd := a.rootCmd()
	cmd.SetArgs([]string{"run"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "OPENAI_API_KEY must be set")
	assert.Empty(t, llm.Requests())
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: single
task: say hi
provider:
  kind: openai
agents:
  - name: greeter
`), 0o644))

	llm := model.NewScriptedModel("m", model.Reply("hi"))
	a, stdout, _ := newTestApp(llm, "sk-test")

	cmd := a.rootCmd()
	cmd.SetArgs([]string{"run", "--config", path, "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "hi\n", stdout.String())
	assert.Equal(t, "say hi", llm.Requests()[0].Messages[0].Content)
}

func TestValidate(t *testing.T) {
	a, stdout, _ := newTestApp(model.NewScriptedModel("m"), "")

	cmd := a.rootCmd()
	cmd.SetArgs([]string{"validate"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Calculation Workflow: 2 agents, provider openai (gpt-4-turbo)")
}

func TestValidate_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\nagents: []\n"), 0o644))

	a, _, stderr := newTestApp(model.NewScriptedModel("m"), "")

	cmd := a.rootCmd()
	cmd.SetArgs([]string{"validate", "--config", path})
	require.Error(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "at least one agent is required")
}
