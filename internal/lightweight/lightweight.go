package lightweight

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// QuantizationLevel names a model precision/size tradeoff.
type QuantizationLevel string

const (
	QuantFP16 QuantizationLevel = "fp16"
	QuantINT8 QuantizationLevel = "int8"
	QuantINT4 QuantizationLevel = "int4"
	QuantGPTQ QuantizationLevel = "gptq"
)

// HardwareProfile describes the machine the agents run on.
type HardwareProfile struct {
	RAMGB    float64 `json:"ram_gb"`
	VRAMGB   float64 `json:"vram_gb"`
	CPUCores int     `json:"cpu_cores"`
	HasGPU   bool    `json:"has_gpu"`
	GPUModel string  `json:"gpu_model,omitempty"`
}

// ModelInfo describes one locally available quantized model.
type ModelInfo struct {
	Name         string  `json:"model_name"`
	Quantization string  `json:"quantization"`
	Format       string  `json:"format"`
	SizeGB       float64 `json:"size_gb"`
	Path         string  `json:"-"`
}

// Mode configures reduced-footprint operation on constrained hardware.
type Mode struct {
	Profile      HardwareProfile
	Quantization QuantizationLevel

	SimplifiedAgents  bool
	BasicWorkflowOnly bool
	ModelOffloading   bool

	modelsDir string
	models    map[string]ModelInfo
}

// New detects hardware and scans modelsDir for quantized models. An empty
// modelsDir defaults to "quantized_models".
func New(modelsDir string) *Mode {
	if modelsDir == "" {
		modelsDir = "quantized_models"
	}
	m := &Mode{
		Profile:           DetectHardware(),
		SimplifiedAgents:  true,
		BasicWorkflowOnly: true,
		ModelOffloading:   true,
		modelsDir:         modelsDir,
	}
	m.Quantization = m.optimalQuantization()
	m.models = m.scanModels()
	return m
}

// DetectHardware probes RAM, CPU and GPU capabilities.
func DetectHardware() HardwareProfile {
	profile := HardwareProfile{CPUCores: 1}

	if vm, err := mem.VirtualMemory(); err == nil {
		profile.RAMGB = float64(vm.Total) / (1 << 30)
	}
	if cores, err := cpu.Counts(false); err == nil && cores > 0 {
		profile.CPUCores = cores
	}

	profile.GPUModel, profile.VRAMGB = detectGPU()
	profile.HasGPU = profile.GPUModel != ""
	return profile
}

// detectGPU shells out to nvidia-smi when available. CREW_VRAM_GB overrides
// for machines where the probe is unreliable.
func detectGPU() (string, float64) {
	if v := os.Getenv("CREW_VRAM_GB"); v != "" {
		if gb, err := strconv.ParseFloat(v, 64); err == nil {
			return "override", gb
		}
	}

	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return "", 0
	}
	out, err := exec.Command("nvidia-smi", "--query-gpu=name,memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return "", 0
	}
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return "", 0
	}
	mib, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0
	}
	return strings.TrimSpace(parts[0]), mib / 1024
}

// optimalQuantization picks the best precision the detected VRAM can hold.
func (m *Mode) optimalQuantization() QuantizationLevel {
	switch {
	case m.Profile.VRAMGB >= 8:
		return QuantFP16
	case m.Profile.VRAMGB >= 4:
		return QuantINT8
	case m.Profile.VRAMGB >= 2:
		return QuantINT4
	default:
		return QuantGPTQ
	}
}

// scanModels reads config.json from each model directory.
func (m *Mode) scanModels() map[string]ModelInfo {
	models := make(map[string]ModelInfo)

	entries, err := os.ReadDir(m.modelsDir)
	if err != nil {
		return models
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		configPath := filepath.Join(m.modelsDir, entry.Name(), "config.json")
		data, err := os.ReadFile(configPath)
		if err != nil {
			continue
		}
		var info ModelInfo
		if err := json.Unmarshal(data, &info); err != nil {
			log.Printf("[Lightweight] Skipping %s: bad config.json: %v", entry.Name(), err)
			continue
		}
		info.Path = filepath.Join(m.modelsDir, entry.Name())
		models[info.Name] = info
	}
	return models
}

// AvailableModels lists the names of locally available quantized models.
func (m *Mode) AvailableModels() []string {
	names := make([]string, 0, len(m.models))
	for name := range m.models {
		names = append(names, name)
	}
	return names
}

// Model returns the model info for name.
func (m *Mode) Model(name string) (ModelInfo, bool) {
	info, ok := m.models[name]
	return info, ok
}

// AgentPreset returns reduced settings for a named agent.
func (m *Mode) AgentPreset(agentType string) map[string]any {
	base := map[string]any{
		"max_tokens":  512,
		"temperature": 0.7,
		"stream":      false,
		"use_cache":   true,
	}

	switch agentType {
	case "engineer":
		base["model"] = "codellama-7b-4bit"
		base["strategy"] = "direct"
	case "tester":
		base["model"] = "llama2-7b-4bit"
		base["max_test_cases"] = 5
		base["coverage_target"] = 70
	case "devops":
		base["model"] = "mistral-7b-4bit"
		base["simulate_only"] = true
		base["environments"] = []string{"development"}
	}
	return base
}

// EstimateMemoryGB estimates total memory usage for the active settings.
func (m *Mode) EstimateMemoryGB() float64 {
	base := 0.5

	var model float64
	switch m.Quantization {
	case QuantFP16:
		model = 14
	case QuantINT8:
		model = 7
	case QuantINT4:
		model = 3.5
	default:
		model = 2
	}

	agents := 2.0
	if m.SimplifiedAgents {
		agents = 0.5
	}
	return base + model + agents
}

// PerformanceReport summarizes the lightweight mode state.
type PerformanceReport struct {
	Hardware         HardwareProfile   `json:"hardware_profile"`
	Quantization     QuantizationLevel `json:"quantization_level"`
	AvailableModels  []string          `json:"available_models"`
	SimplifiedAgents bool              `json:"simplified_agents"`
	BasicWorkflow    bool              `json:"basic_workflow"`
	ModelOffloading  bool              `json:"model_offloading"`
	EstimatedMemGB   float64           `json:"estimated_memory_usage_gb"`
}

// Report builds the performance optimization report.
func (m *Mode) Report() *PerformanceReport {
	return &PerformanceReport{
		Hardware:         m.Profile,
		Quantization:     m.Quantization,
		AvailableModels:  m.AvailableModels(),
		SimplifiedAgents: m.SimplifiedAgents,
		BasicWorkflow:    m.BasicWorkflowOnly,
		ModelOffloading:  m.ModelOffloading,
		EstimatedMemGB:   m.EstimateMemoryGB(),
	}
}

// SystemStats reports live CPU and memory usage for the diagnostics menu.
type SystemStats struct {
	CPUPercent    float64 `json:"cpu"`
	MemoryPercent float64 `json:"memory"`
}

// CurrentStats samples current system utilization.
func CurrentStats() (*SystemStats, error) {
	stats := &SystemStats{}

	percents, err := cpu.Percent(0, false)
	if err != nil {
		return nil, fmt.Errorf("sample cpu: %w", err)
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("sample memory: %w", err)
	}
	stats.MemoryPercent = vm.UsedPercent
	return stats, nil
}
