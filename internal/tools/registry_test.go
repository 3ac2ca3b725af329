package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualmate/orchestrator/internal/policy"
)

func newLocalRegistry(t *testing.T) *Registry {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	r := NewRegistry(engine)
	RegisterLocalTools(r)
	return r
}

func TestInvokeUnknownTool(t *testing.T) {
	r := newLocalRegistry(t)

	_, err := r.Invoke(context.Background(), "selfDestruct", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestInvokeMissingRequiredArgument(t *testing.T) {
	r := newLocalRegistry(t)

	_, err := r.Invoke(context.Background(), "getVehicleSpecSheet", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = r.Invoke(context.Background(), "compareSpecs", json.RawMessage(`{"modelA":"LYRIQ"}`))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestInvokeMalformedArguments(t *testing.T) {
	r := newLocalRegistry(t)

	_, err := r.Invoke(context.Background(), "getVehicleSpecSheet", json.RawMessage(`"not an object`))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestInvokeSpecSheet(t *testing.T) {
	r := newLocalRegistry(t)

	out, err := r.Invoke(context.Background(), "getVehicleSpecSheet", json.RawMessage(`{"model":"lyriq"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Specs for LYRIQ")
	assert.Contains(t, out, "500km WLTP")
}

func TestInvokeWarrantyNormalizesVIN(t *testing.T) {
	r := newLocalRegistry(t)

	out, err := r.Invoke(context.Background(), "lookupWarrantyByVIN",
		json.RawMessage(`{"vin":"1gyk-pyrs 9rz123456"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "VIN 1GYKPYRS9RZ123456")
}

func TestInvokeNoArgsTool(t *testing.T) {
	r := newLocalRegistry(t)

	out, err := r.Invoke(context.Background(), "listAvailableModels", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "LYRIQ")
}

func TestInvokePolicyBlocked(t *testing.T) {
	const blockWeather = `
package tool_policy

default decision = "allow"

decision = "block" {
	input.tool_name == "getWeatherAtLocation"
}
`
	engine, err := policy.NewEngine(context.Background(), blockWeather)
	require.NoError(t, err)
	r := NewRegistry(engine)
	r.MustRegister(Tool{
		Name:   "getWeatherAtLocation",
		Schema: Schema{Properties: map[string]Param{"city": {Type: "string"}}, Required: []string{"city"}},
		Handler: func(context.Context, map[string]string) (string, error) {
			t.Fatal("handler must not run for a blocked tool")
			return "", nil
		},
	})

	_, err = r.Invoke(context.Background(), "getWeatherAtLocation", json.RawMessage(`{"city":"Berlin"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not permitted")
}

func TestDefinitionsCatalog(t *testing.T) {
	r := newLocalRegistry(t)

	defs := r.Definitions()
	require.Len(t, defs, 6)
	assert.Equal(t, "getVehicleSpecSheet", defs[0].Name)

	params, ok := defs[0].Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, params, "model")
	assert.Equal(t, []string{"model"}, defs[0].Parameters["required"])
}
