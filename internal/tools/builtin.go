package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var vinCleaner = regexp.MustCompile(`[^A-Z0-9]`)

// RegisterLocalTools registers the deterministic, side-effect-free tools:
// spec lookups, comparisons, warranty and maintenance formatting.
func RegisterLocalTools(r *Registry) {
	r.MustRegister(Tool{
		Name:        "getVehicleSpecSheet",
		Description: "Get official specs for a Cadillac model",
		Schema: Schema{
			Properties: map[string]Param{
				"model": {Type: "string", Description: "Model name, e.g. LYRIQ"},
			},
			Required: []string{"model"},
		},
		Handler: func(_ context.Context, args map[string]string) (string, error) {
			return specSheet(args["model"]), nil
		},
	})

	r.MustRegister(Tool{
		Name:        "compareSpecs",
		Description: "Compare two Cadillac models",
		Schema: Schema{
			Properties: map[string]Param{
				"modelA": {Type: "string"},
				"modelB": {Type: "string"},
			},
			Required: []string{"modelA", "modelB"},
		},
		Handler: func(_ context.Context, args map[string]string) (string, error) {
			a, b := args["modelA"], args["modelB"]
			return fmt.Sprintf("📊 Comparing %s vs %s:\n\n%s\n\n---\n\n%s",
				strings.ToUpper(a), strings.ToUpper(b), specSheet(a), specSheet(b)), nil
		},
	})

	r.MustRegister(Tool{
		Name:        "lookupWarrantyByVIN",
		Description: "Returns estimated warranty info based on VIN",
		Schema: Schema{
			Properties: map[string]Param{
				"vin": {Type: "string", Description: "17-character vehicle VIN code"},
			},
			Required: []string{"vin"},
		},
		Handler: func(_ context.Context, args map[string]string) (string, error) {
			vin := vinCleaner.ReplaceAllString(strings.ToUpper(args["vin"]), "")
			return fmt.Sprintf(`🔍 Warranty lookup for VIN %s:
- Bumper-to-Bumper: 4 years / 80,000 km
- Powertrain: 6 years / 110,000 km
- EV Components: 8 years / 160,000 km`, vin), nil
		},
	})

	r.MustRegister(Tool{
		Name:        "checkChargingPortType",
		Description: "Returns connector standard for a region",
		Schema: Schema{
			Properties: map[string]Param{
				"region": {Type: "string", Description: "Region or market, e.g. EU, US, Asia"},
			},
			Required: []string{"region"},
		},
		Handler: func(_ context.Context, args map[string]string) (string, error) {
			region := args["region"]
			portType := "SAE J1772 + CCS1"
			if strings.Contains(strings.ToLower(region), "eu") {
				portType = "CCS2"
			}
			return fmt.Sprintf("🔌 Charging port type for %s: %s", strings.ToUpper(region), portType), nil
		},
	})

	r.MustRegister(Tool{
		Name:        "summarizeMaintenanceSchedule",
		Description: "Returns recommended maintenance based on kilometers",
		Schema: Schema{
			Properties: map[string]Param{
				"model":      {Type: "string", Description: "Cadillac model"},
				"kilometers": {Type: "string", Description: "Current km mileage"},
			},
			Required: []string{"model", "kilometers"},
		},
		Handler: func(_ context.Context, args map[string]string) (string, error) {
			model := args["model"]
			km, _ := strconv.Atoi(strings.TrimSpace(args["kilometers"]))
			switch {
			case km < 15000:
				return fmt.Sprintf("🛠️ %s: First check at 15,000 km — inspect brakes, fluids, tire wear.", model), nil
			case km < 30000:
				return fmt.Sprintf("🛠️ %s: 30,000 km service — replace cabin filter, rotate tires, battery check.", model), nil
			default:
				return fmt.Sprintf("🛠️ %s: Comprehensive 45,000 km service — full diagnostics, brake flush, software updates.", model), nil
			}
		},
	})

	r.MustRegister(Tool{
		Name:        "listAvailableModels",
		Description: "Lists available Cadillac models in EU",
		Schema:      Schema{Properties: map[string]Param{}},
		Handler: func(_ context.Context, _ map[string]string) (string, error) {
			return `🚗 Available Cadillac EU Models:
- LYRIQ (EV SUV)
- OPTIQ (compact EV)
- CT5-V Blackwing (performance sedan)
- ESCALADE IQ (upcoming full-size EV)`, nil
		},
	})
}

func specSheet(model string) string {
	return fmt.Sprintf(`📄 Specs for %s:
- Battery: 400V
- AWD, 500km WLTP
- 10–80%% in 30 min
- 33" OLED Display
- Level 2 Super Cruise`, strings.ToUpper(model))
}
