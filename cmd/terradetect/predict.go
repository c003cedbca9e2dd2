package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terradetect/terradetect/internal/advisor"
	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/render"
	"github.com/terradetect/terradetect/internal/session"
	"github.com/terradetect/terradetect/internal/source"
	"github.com/terradetect/terradetect/internal/ui"
)

// Predict command flags
var (
	predictSource  string
	predictFormat  string
	predictVerbose bool
	fillFromSensor bool

	fieldFlags = map[advisor.Field]*string{}
)

// fieldFlagNames maps form fields to flag names.
var fieldFlagNames = []struct {
	field advisor.Field
	name  string
	usage string
}{
	{advisor.FieldN, "n", "Nitrogen (N)"},
	{advisor.FieldP, "p", "Phosphorus (P)"},
	{advisor.FieldK, "k", "Potassium (K)"},
	{advisor.FieldPH, "ph", "Soil pH"},
	{advisor.FieldTemperature, "temperature", "Temperature in °C"},
	{advisor.FieldHumidity, "humidity", "Relative humidity in %"},
	{advisor.FieldRainfall, "rainfall", "Annual rainfall in mm"},
	{advisor.FieldCropName, "crop", "Crop name (suitability and fertilizer modes)"},
	{advisor.FieldSoil, "soil", "Soil type: Black, Clayey, Loamy, Red or Sandy (fertilizer mode)"},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Get a recommendation without the interactive form",
	Long: `Send one set of values to the prediction service and print the result.

The mode decides which values are required:
  crop         N, P, K, pH, temperature, humidity, rainfall
  suitability  as crop, plus the crop name
  fertilizer   N, P, K, pH, crop name and soil type

With --source api the weather values are fetched for the configured
location. With --source sensor the field sensors are triggered first and
the gateway is told to use their reading; add --fill to copy the reading
into the soil and weather values. Values given as flags always win.`,
	Example: `  # Recommend a crop
  terradetect predict --mode crop --n 90 --p 42 --k 43 --ph 6.5 \
    --temperature 20.8 --humidity 82 --rainfall 202.9

  # Check suitability with weather from the weather service
  terradetect predict --mode suitability --source api \
    --n 90 --p 42 --k 43 --ph 6.5 --crop rice

  # Fertilizer advice as JSON
  terradetect predict --mode fertilizer --n 20 --p 10 --k 15 --ph 6.8 \
    --crop maize --soil Loamy --format json`,
	RunE: runPredict,
}

func init() {
	for _, f := range fieldFlagNames {
		fieldFlags[f.field] = predictCmd.Flags().String(f.name, "", f.usage)
	}
	predictCmd.Flags().StringVar(&predictSource, "source", "manual", "Weather source: manual, api or sensor")
	predictCmd.Flags().StringVar(&predictFormat, "format", "text", "Output format (text, json)")
	predictCmd.Flags().BoolVar(&predictVerbose, "verbose", false, "Show the raw service response")
	predictCmd.Flags().BoolVar(&fillFromSensor, "fill", false, "Copy the sensor reading into the form values (--source sensor)")

	rootCmd.AddCommand(predictCmd)
}

// predictOutput is the JSON output of predict.
type predictOutput struct {
	Mode     string                  `json:"mode"`
	Request  *backend.PredictRequest `json:"request"`
	Result   json.RawMessage         `json:"result,omitempty"`
	Rendered *render.Fragment        `json:"rendered,omitempty"`
}

func runPredict(cmd *cobra.Command, _ []string) error {
	mode, err := defaultMode(settings)
	if err != nil {
		return err
	}
	src, err := session.ParseSource(predictSource)
	if err != nil {
		return err
	}
	if predictFormat != "text" && predictFormat != "json" {
		return fmt.Errorf("unknown format %q (expected text or json)", predictFormat)
	}

	client := newClient(settings)
	p := &predictor{
		sources: newController(settings, client),
		orch:    advisor.NewOrchestrator(client),
		view:    newCLIView(),
	}
	for f, v := range fieldFlags {
		if cmd.Flags().Changed(flagName(f)) {
			p.overrides = append(p.overrides, fieldValue{f, *v})
		}
	}

	if predictFormat == "json" {
		st, err := p.run(cmd.Context(), mode, src, nil)
		if err != nil {
			return err
		}
		out := predictOutput{Mode: string(st.Mode), Request: p.req, Rendered: p.view.result}
		if p.pred != nil {
			out.Result = p.pred.Raw
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	cfg, _ := session.ConfigFor(mode)
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   cfg.Title,
		Command: "terradetect predict",
		Params: []ui.Param{
			{Key: "Gateway", Value: client.BaseURL},
			{Key: "Mode", Value: string(mode)},
			{Key: "Weather source", Value: src.Label()},
		},
		StepNames:    []string{"Acquire weather data", "Validate values", "Request recommendation"},
		Troubleshoot: troubleshooting,
	})

	err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (*ui.Result, error) {
		if _, err := p.run(ctx, mode, src, onStep); err != nil {
			return nil, err
		}
		res := ui.NewSuccessResult(cfg.SubmitLabel)
		if p.view.result != nil {
			res.SetBody(render.View(*p.view.result, ui.GetTerminalWidth()-8))
		}
		return res, nil
	})
	if err == nil && predictVerbose && p.pred != nil {
		ui.NewPrinter(nil).PrintRaw("Service response", string(p.pred.Raw), 40)
	}
	return err
}

type fieldValue struct {
	field advisor.Field
	value string
}

// predictor drives the advisory components for one submission.
type predictor struct {
	sources   *source.Controller
	orch      *advisor.Orchestrator
	view      *cliView
	overrides []fieldValue

	req  *backend.PredictRequest
	pred *backend.Prediction
}

func (p *predictor) run(ctx context.Context, mode session.Mode, src session.WeatherSource, onStep ui.StepCallback) (session.State, error) {
	step := func(n int, status ui.StepStatus, msg string) {
		if onStep != nil {
			onStep(n, status, msg)
		}
	}

	st := advisor.SetMode(session.New(mode), mode, p.view)

	// 1. Weather source
	if src == session.SourceManual {
		step(1, ui.StepSkipped, "manual entry")
	} else {
		step(1, ui.StepRunning, "")
		p.view.onMessage = func(msg string) { step(1, ui.StepRunning, msg) }
		p.sources.Progress = p.view.ShowMessage

		var err error
		st, err = p.sources.Select(ctx, st, src, p.view)
		if err != nil {
			step(1, ui.StepFailed, "")
			return st, err
		}
		if src == session.SourceSensor && fillFromSensor {
			if st, err = source.UseSensorData(st, p.view); err != nil {
				step(1, ui.StepFailed, "")
				return st, err
			}
			// The gateway still reads the sensors for this submission.
			st = session.Reduce(st, session.SourceSelected{Source: session.SourceSensor})
		}
		step(1, ui.StepComplete, src.Label())
	}

	for _, o := range p.overrides {
		p.view.SetField(o.field, o.value)
	}

	// 2. Validation
	step(2, ui.StepRunning, "")
	req, err := advisor.BuildRequest(st, p.view.values)
	if err != nil {
		step(2, ui.StepFailed, "")
		return st, err
	}
	p.req = req
	step(2, ui.StepComplete, "")

	// 3. Submission
	step(3, ui.StepRunning, "")
	st, err = p.submit(ctx, st)
	if err != nil {
		step(3, ui.StepFailed, "")
		return st, err
	}
	step(3, ui.StepComplete, "")
	return st, nil
}

// submit runs the orchestrator and keeps the decoded prediction for the
// JSON and verbose output.
func (p *predictor) submit(ctx context.Context, st session.State) (session.State, error) {
	st, req, err := p.orch.Begin(st, p.view.values, p.view)
	if err != nil {
		return st, err
	}
	pred, err := p.orch.Execute(ctx, req)
	st = p.orch.Finish(st, pred, err, p.view)
	if err != nil {
		return st, err
	}
	p.pred = pred
	if p.view.result == nil || p.view.result.Empty() {
		return st, errors.New(render.Placeholder)
	}
	return st, nil
}

func flagName(f advisor.Field) string {
	for _, ff := range fieldFlagNames {
		if ff.field == f {
			return ff.name
		}
	}
	return string(f)
}
