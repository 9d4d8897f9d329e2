package carelog

import (
	"fmt"
	"strconv"
	"strings"
)

// AlertSeverity orders from most to least urgent.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
)

// VitalAlert is one classifier finding. Metric identifies the reading it
// came from; at most one alert is emitted per metric.
type VitalAlert struct {
	Metric   string        `json:"metric"` // bloodPressure, pulseRate, oxygenLevel, bloodSugar
	Severity AlertSeverity `json:"severity"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
}

const (
	MetricBloodPressure = "bloodPressure"
	MetricPulseRate     = "pulseRate"
	MetricOxygenLevel   = "oxygenLevel"
	MetricBloodSugar    = "bloodSugar"
)

// bpTarget returns the systolic/diastolic thresholds adjusted for age and
// gender. Age <= 0 means unknown and keeps the base target.
func bpTarget(age int, gender string) (sys, dia int) {
	sys, dia = 130, 80
	switch {
	case age >= 80:
		sys, dia = 140, 90
	case age >= 65:
		sys, dia = 135, 85
	}
	if age > 0 && age < 55 && strings.EqualFold(gender, "female") {
		sys -= 5
	}
	return sys, dia
}

// ClassifyVitals evaluates a reading against age- and gender-adjusted
// thresholds. It is pure, never mutates its input, and returns alerts in a
// fixed order: blood pressure, pulse, oxygen, blood sugar. Unparseable or
// empty fields are skipped silently; a reading a caregiver has not finished
// typing is not an error condition.
func ClassifyVitals(v VitalsReading, age int, gender string) []VitalAlert {
	var alerts []VitalAlert

	if a, ok := classifyBP(v.BloodPressure, age, gender); ok {
		alerts = append(alerts, a)
	}
	if a, ok := classifyPulse(v.PulseRate); ok {
		alerts = append(alerts, a)
	}
	if a, ok := classifyOxygen(v.OxygenLevel); ok {
		alerts = append(alerts, a)
	}
	if a, ok := classifyBloodSugar(v.BloodSugar); ok {
		alerts = append(alerts, a)
	}
	return alerts
}

func classifyBP(raw string, age int, gender string) (VitalAlert, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), "/", 2)
	if len(parts) != 2 {
		return VitalAlert{}, false
	}
	sys, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	dia, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || sys <= 0 || dia <= 0 {
		return VitalAlert{}, false
	}

	// First match wins; crisis outranks the adjusted-target tiers.
	switch {
	case sys >= 180 || dia >= 120:
		return bpAlert(SeverityCritical, "bp_crisis",
			fmt.Sprintf("Blood pressure %d/%d is at crisis level, seek medical help", sys, dia)), true
	case sys < 90 || dia < 60:
		return bpAlert(SeverityCritical, "bp_hypotension",
			fmt.Sprintf("Blood pressure %d/%d is dangerously low", sys, dia)), true
	}

	targetSys, targetDia := bpTarget(age, gender)
	switch {
	case sys >= targetSys+10 || dia >= targetDia+10:
		return bpAlert(SeverityWarning, "bp_elevated",
			fmt.Sprintf("Blood pressure %d/%d is elevated above the %d/%d target", sys, dia, targetSys, targetDia)), true
	case sys >= targetSys || dia >= targetDia:
		return bpAlert(SeverityWarning, "bp_slightly_elevated",
			fmt.Sprintf("Blood pressure %d/%d is slightly above the %d/%d target", sys, dia, targetSys, targetDia)), true
	}
	return VitalAlert{}, false
}

func bpAlert(sev AlertSeverity, code, msg string) VitalAlert {
	return VitalAlert{Metric: MetricBloodPressure, Severity: sev, Code: code, Message: msg}
}

func classifyPulse(raw string) (VitalAlert, bool) {
	pulse, ok := parsePositiveInt(raw)
	if !ok {
		return VitalAlert{}, false
	}
	a := VitalAlert{Metric: MetricPulseRate}
	switch {
	case pulse > 120:
		a.Severity, a.Code = SeverityCritical, "pulse_critical_high"
		a.Message = fmt.Sprintf("Pulse %d bpm is critically high", pulse)
	case pulse < 40:
		a.Severity, a.Code = SeverityCritical, "pulse_critical_low"
		a.Message = fmt.Sprintf("Pulse %d bpm is critically low", pulse)
	case pulse > 100:
		a.Severity, a.Code = SeverityWarning, "pulse_tachycardia"
		a.Message = fmt.Sprintf("Pulse %d bpm indicates tachycardia", pulse)
	case pulse < 50:
		a.Severity, a.Code = SeverityWarning, "pulse_bradycardia"
		a.Message = fmt.Sprintf("Pulse %d bpm indicates bradycardia", pulse)
	default:
		return VitalAlert{}, false
	}
	return a, true
}

func classifyOxygen(raw string) (VitalAlert, bool) {
	level, ok := parsePositiveInt(raw)
	if !ok {
		return VitalAlert{}, false
	}
	switch {
	case level < 90:
		return VitalAlert{
			Metric:   MetricOxygenLevel,
			Severity: SeverityCritical,
			Code:     "oxygen_critical",
			Message:  fmt.Sprintf("Oxygen saturation %d%% is critically low", level),
		}, true
	case level < 95:
		return VitalAlert{
			Metric:   MetricOxygenLevel,
			Severity: SeverityWarning,
			Code:     "oxygen_low",
			Message:  fmt.Sprintf("Oxygen saturation %d%% is below normal", level),
		}, true
	}
	return VitalAlert{}, false
}

func classifyBloodSugar(raw string) (VitalAlert, bool) {
	sugar, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || sugar <= 0 {
		return VitalAlert{}, false
	}
	a := VitalAlert{Metric: MetricBloodSugar}
	switch {
	case sugar > 15:
		a.Severity, a.Code = SeverityCritical, "sugar_critical_high"
		a.Message = fmt.Sprintf("Blood sugar %.1f mmol/L is critically high", sugar)
	case sugar < 3.9:
		a.Severity, a.Code = SeverityCritical, "sugar_critical_low"
		a.Message = fmt.Sprintf("Blood sugar %.1f mmol/L is critically low", sugar)
	case sugar > 11.1:
		a.Severity, a.Code = SeverityWarning, "sugar_hyperglycemia"
		a.Message = fmt.Sprintf("Blood sugar %.1f mmol/L indicates hyperglycemia", sugar)
	case sugar < 4.4:
		a.Severity, a.Code = SeverityWarning, "sugar_low_caution"
		a.Message = fmt.Sprintf("Blood sugar %.1f mmol/L is approaching the low range", sugar)
	default:
		return VitalAlert{}, false
	}
	return a, true
}

func parsePositiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
