package lightweight

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOptimalQuantization(t *testing.T) {
	tests := []struct {
		vramGB float64
		want   QuantizationLevel
	}{
		{16, QuantFP16},
		{8, QuantFP16},
		{6, QuantINT8},
		{4, QuantINT8},
		{3, QuantINT4},
		{2, QuantINT4},
		{1, QuantGPTQ},
		{0, QuantGPTQ},
	}

	for _, tt := range tests {
		m := &Mode{Profile: HardwareProfile{VRAMGB: tt.vramGB}}
		if got := m.optimalQuantization(); got != tt.want {
			t.Errorf("optimalQuantization(vram=%.0f) = %s, want %s", tt.vramGB, got, tt.want)
		}
	}
}

func TestNewWithVRAMOverride(t *testing.T) {
	t.Setenv("CREW_VRAM_GB", "8")

	m := New(t.TempDir())
	if m.Quantization != QuantFP16 {
		t.Errorf("Quantization = %s, want fp16 with 8GB override", m.Quantization)
	}
	if !m.Profile.HasGPU {
		t.Error("HasGPU should be true with override")
	}
	if !m.SimplifiedAgents || !m.BasicWorkflowOnly || !m.ModelOffloading {
		t.Error("lightweight mode should enable all reductions")
	}
}

func TestScanModels(t *testing.T) {
	dir := t.TempDir()

	writeModel := func(name, config string) {
		modelDir := filepath.Join(dir, name)
		if err := os.MkdirAll(modelDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(modelDir, "config.json"), []byte(config), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writeModel("codellama", `{"model_name":"codellama-7b-4bit","quantization":"int4","format":"gguf","size_gb":3.8}`)
	writeModel("broken", `{not json`)

	// Directories without config.json are skipped
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	m := &Mode{modelsDir: dir}
	models := m.scanModels()

	if len(models) != 1 {
		t.Fatalf("scanModels() found %d models, want 1", len(models))
	}
	info, ok := models["codellama-7b-4bit"]
	if !ok {
		t.Fatal("codellama-7b-4bit missing")
	}
	if info.Quantization != "int4" || info.SizeGB != 3.8 {
		t.Errorf("info = %+v", info)
	}
	if info.Path == "" {
		t.Error("Path should point at the model directory")
	}
}

func TestScanModelsMissingDir(t *testing.T) {
	m := &Mode{modelsDir: filepath.Join(t.TempDir(), "nope")}
	if models := m.scanModels(); len(models) != 0 {
		t.Errorf("expected no models, got %d", len(models))
	}
}

func TestAgentPreset(t *testing.T) {
	m := &Mode{}

	engineer := m.AgentPreset("engineer")
	if engineer["model"] != "codellama-7b-4bit" {
		t.Errorf("engineer model = %v", engineer["model"])
	}
	if engineer["max_tokens"] != 512 {
		t.Errorf("engineer max_tokens = %v, want 512", engineer["max_tokens"])
	}

	devops := m.AgentPreset("devops")
	if devops["simulate_only"] != true {
		t.Error("devops preset should force simulation")
	}

	unknown := m.AgentPreset("other")
	if _, ok := unknown["model"]; ok {
		t.Error("unknown agent type should not get a model assignment")
	}
}

func TestEstimateMemoryGB(t *testing.T) {
	tests := []struct {
		quant      QuantizationLevel
		simplified bool
		want       float64
	}{
		{QuantFP16, false, 0.5 + 14 + 2},
		{QuantINT8, true, 0.5 + 7 + 0.5},
		{QuantINT4, true, 0.5 + 3.5 + 0.5},
		{QuantGPTQ, true, 0.5 + 2 + 0.5},
	}

	for _, tt := range tests {
		m := &Mode{Quantization: tt.quant, SimplifiedAgents: tt.simplified}
		if got := m.EstimateMemoryGB(); got != tt.want {
			t.Errorf("EstimateMemoryGB(%s) = %f, want %f", tt.quant, got, tt.want)
		}
	}
}

func TestReport(t *testing.T) {
	m := New(t.TempDir())
	report := m.Report()

	if report.Quantization != m.Quantization {
		t.Errorf("Quantization = %s, want %s", report.Quantization, m.Quantization)
	}
	if report.EstimatedMemGB <= 0 {
		t.Errorf("EstimatedMemGB = %f, want > 0", report.EstimatedMemGB)
	}
}

func TestDetectHardware(t *testing.T) {
	profile := DetectHardware()
	if profile.CPUCores < 1 {
		t.Errorf("CPUCores = %d, want >= 1", profile.CPUCores)
	}
	if profile.RAMGB <= 0 {
		t.Errorf("RAMGB = %f, want > 0", profile.RAMGB)
	}
}
