package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Location is a GPS fix.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Patient is the intake record the pipeline starts from.
type Patient struct {
	PatientID      string   `json:"patient_id"`
	Description    string   `json:"description"`
	Location       Location `json:"location"`
	Vitals         string   `json:"vitals"`
	OnsetTime      string   `json:"onset_time"`
	MedicalHistory string   `json:"medical_history"`
}

type Symptom struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

type Triage struct {
	PatientID      string    `json:"patient_id,omitempty"`
	Symptoms       []Symptom `json:"symptoms"`
	Priority       int       `json:"priority"`
	Specialty      string    `json:"specialty"`
	NeedsEmergency bool      `json:"needs_emergency"`
}

type Hospital struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DistanceKM     float64 `json:"distance_km"`
	SpecialtyMatch bool    `json:"specialty_match"`
}

type HospitalMatch struct {
	PatientID   string     `json:"patient_id"`
	Hospitals   []Hospital `json:"hospitals"`
	IsEmergency bool       `json:"is_emergency"`
}

type Ambulance struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ETAMinutes int    `json:"eta_minutes"`
}

type Dispatch struct {
	PatientID   string      `json:"patient_id"`
	Ambulances  []Ambulance `json:"ambulances"`
	IsEmergency bool        `json:"is_emergency"`
}

type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OptimizerInput struct {
	HospitalData HospitalMatch `json:"hospital_data"`
	DispatchData Dispatch      `json:"dispatch_data"`
}

type Plan struct {
	PatientID            string `json:"patient_id"`
	OptimizedHospital    Ref    `json:"optimized_hospital"`
	OptimizedAmbulance   Ref    `json:"optimized_ambulance"`
	ETAMinutes           int    `json:"eta_minutes"`
	EstimatedArrivalTime string `json:"estimated_arrival_time"`
}

// Step names as they appear in traces.
const (
	TriageStep    = "TriageAgent"
	HospitalStep  = "HospitalAgent"
	DispatchStep  = "DispatchAgent"
	OptimizerStep = "OptimizerAgent"
)

var hospitals = []Hospital{
	{ID: "H001", Name: "Cho Ray Hospital", DistanceKM: 2.3},
	{ID: "H002", Name: "115 People's Hospital", DistanceKM: 3.8},
	{ID: "H003", Name: "Gia Dinh People's Hospital", DistanceKM: 5.1},
}

var specialties = map[string][]string{
	"Cardiology":  {"H001", "H003"},
	"Neurology":   {"H002", "H001"},
	"Trauma":      {"H001", "H002", "H003"},
	"Respiratory": {"H003"},
}

var fleet = []Ambulance{
	{ID: "A001", Name: "Ambulance 1", ETAMinutes: 7},
	{ID: "A002", Name: "Ambulance 2", ETAMinutes: 12},
	{ID: "A003", Name: "Ambulance 3", ETAMinutes: 15},
}

// triage scores the description with a keyword table.
func triage(p Patient) Triage {
	d := strings.ToLower(p.Description + " " + p.Vitals)
	t := Triage{Priority: 2, Specialty: "Trauma"}

	rules := []struct {
		keyword, name, severity, specialty string
		priority                           int
	}{
		{"unconscious", "Unconscious", "High", "Cardiology", 5},
		{"chest pain", "Chest pain", "High", "Cardiology", 5},
		{"pale", "Pale skin", "High", "", 4},
		{"sweat", "Cold sweat", "Medium", "", 3},
		{"slurred", "Slurred speech", "High", "Neurology", 5},
		{"numb", "Numbness", "Medium", "Neurology", 4},
		{"breath", "Shortness of breath", "High", "Respiratory", 4},
		{"bleeding", "Bleeding", "High", "Trauma", 4},
		{"fracture", "Suspected fracture", "Medium", "Trauma", 3},
	}
	for _, r := range rules {
		if !strings.Contains(d, r.keyword) {
			continue
		}
		t.Symptoms = append(t.Symptoms, Symptom{Name: r.name, Severity: r.severity})
		if r.priority > t.Priority {
			t.Priority = r.priority
			if r.specialty != "" {
				t.Specialty = r.specialty
			}
		}
	}
	if t.Symptoms == nil {
		t.Symptoms = []Symptom{}
	}
	t.NeedsEmergency = t.Priority >= 4
	return t
}

func matchHospitals(patientID string, t Triage) HospitalMatch {
	want := map[string]bool{}
	for _, id := range specialties[t.Specialty] {
		want[id] = true
	}
	m := HospitalMatch{PatientID: patientID, IsEmergency: t.NeedsEmergency, Hospitals: []Hospital{}}
	for _, h := range hospitals {
		if want[h.ID] {
			h.SpecialtyMatch = true
			m.Hospitals = append(m.Hospitals, h)
		}
	}
	return m
}

func dispatch(patientID string, t Triage) Dispatch {
	units := fleet
	if t.NeedsEmergency {
		units = fleet[:2]
	}
	return Dispatch{PatientID: patientID, Ambulances: units, IsEmergency: t.NeedsEmergency}
}

// optimize picks the nearest matching hospital and the fastest ambulance.
func optimize(in OptimizerInput, now time.Time) (Plan, error) {
	if len(in.HospitalData.Hospitals) == 0 {
		return Plan{}, fmt.Errorf("no hospital matches patient %s", in.HospitalData.PatientID)
	}
	if len(in.DispatchData.Ambulances) == 0 {
		return Plan{}, fmt.Errorf("no ambulance available for patient %s", in.DispatchData.PatientID)
	}
	h := in.HospitalData.Hospitals[0]
	for _, c := range in.HospitalData.Hospitals[1:] {
		if c.DistanceKM < h.DistanceKM {
			h = c
		}
	}
	a := in.DispatchData.Ambulances[0]
	for _, c := range in.DispatchData.Ambulances[1:] {
		if c.ETAMinutes < a.ETAMinutes {
			a = c
		}
	}
	// assume roughly 30 km/h through traffic once loaded
	eta := a.ETAMinutes + int(h.DistanceKM*2+0.5)
	return Plan{
		PatientID:            in.HospitalData.PatientID,
		OptimizedHospital:    Ref{ID: h.ID, Name: h.Name},
		OptimizedAmbulance:   Ref{ID: a.ID, Name: a.Name},
		ETAMinutes:           eta,
		EstimatedArrivalTime: now.Add(time.Duration(eta) * time.Minute).Format("15:04"),
	}, nil
}

// DemoPatients are the intake records the demo run cycles through.
var DemoPatients = []Patient{
	{
		PatientID:      "P12345",
		Description:    "Male, 55, found unconscious in a park, pale skin, cold sweat, unresponsive.",
		Location:       Location{Latitude: 10.754, Longitude: 106.6631},
		Vitals:         "Blood pressure: not measurable, heart rate: undetermined",
		OnsetTime:      "10 minutes",
		MedicalHistory: "Hypertension, diabetes",
	},
	{
		PatientID:      "P23456",
		Description:    "Female, 68, slurred speech and numbness in the right arm.",
		Location:       Location{Latitude: 10.7769, Longitude: 106.7009},
		Vitals:         "Blood pressure: 185/110, heart rate: 92",
		OnsetTime:      "30 minutes",
		MedicalHistory: "Atrial fibrillation",
	},
	{
		PatientID:      "P34567",
		Description:    "Male, 24, motorbike collision, bleeding from the leg, suspected fracture.",
		Location:       Location{Latitude: 10.8231, Longitude: 106.6297},
		Vitals:         "Blood pressure: 110/70, heart rate: 118",
		OnsetTime:      "5 minutes",
		MedicalHistory: "None",
	},
}
