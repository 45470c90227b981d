// SPDX-License-Identifier: MIT

package transport

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"soundcheck/internal/audio"
	"soundcheck/internal/audiometry"
	"soundcheck/internal/classifier"
	"soundcheck/internal/log"
	"soundcheck/internal/simulate"
	"soundcheck/internal/synth"
	"soundcheck/pkg/build"
)

const apiName = "SoundCheck - ML-Powered Hearing Test API"

// Request-layer bounds for tone generation. The synthesizer itself
// accepts anything up to Nyquist; the public API is stricter so a
// typo'd request cannot produce an hour of ultrasound.
const (
	minToneFrequency = 20.0
	maxToneFrequency = 20000.0
	minToneDuration  = 0.1
	maxToneDuration  = 10.0
)

// maxUploadBytes caps simulation uploads.
const maxUploadBytes = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("writing JSON response: %v", err)
	}
}

// errorJSON writes the {"detail": ...} error shape used across the
// API.
func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": apiName,
		"version": build.GetBuildFlags().Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now().Format(time.RFC3339),
		"model_loaded": s.scorer.Ready(),
		"version":      build.GetBuildFlags().Version,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if !s.scorer.Ready() {
		errorJSON(w, http.StatusServiceUnavailable, "Model not loaded")
		return
	}
	m := s.scorer.Model()
	writeJSON(w, http.StatusOK, map[string]any{
		"model_name":    m.ModelName,
		"accuracy":      m.Metrics.Accuracy,
		"feature_names": m.FeatureNames,
		"classes":       m.ClassLabels,
		"training_date": m.TrainedAt.Format(time.RFC3339),
	})
}

// toneRequest carries the tone generation parameters. The handler
// pre-fills the configured defaults, so absent fields keep them.
type toneRequest struct {
	Frequency  float64 `json:"frequency"`
	Duration   float64 `json:"duration"`
	Volume     float64 `json:"volume"`
	SampleRate int     `json:"sample_rate"`
}

func (s *Server) handleGenerateTone(w http.ResponseWriter, r *http.Request) {
	req := toneRequest{
		Duration:   s.cfg.Audio.ToneDurationS,
		Volume:     s.cfg.Audio.ToneVolume,
		SampleRate: s.cfg.Audio.SampleRate,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Frequency < minToneFrequency || req.Frequency > maxToneFrequency {
		errorJSON(w, http.StatusBadRequest,
			fmt.Sprintf("frequency must be between %g and %g Hz, got %g", minToneFrequency, maxToneFrequency, req.Frequency))
		return
	}
	if req.Duration < minToneDuration || req.Duration > maxToneDuration {
		errorJSON(w, http.StatusBadRequest,
			fmt.Sprintf("duration must be between %g and %g seconds, got %g", minToneDuration, maxToneDuration, req.Duration))
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		errorJSON(w, http.StatusBadRequest,
			fmt.Sprintf("volume must be between 0 and 1, got %g", req.Volume))
		return
	}

	wf, err := synth.Synthesize(synth.Tone{
		Frequency:  req.Frequency,
		Duration:   req.Duration,
		Amplitude:  req.Volume,
		SampleRate: req.SampleRate,
		Fade:       time.Duration(s.cfg.Audio.FadeMs * float64(time.Millisecond)),
	})
	if err != nil {
		if errors.Is(err, synth.ErrInvalidParameter) {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		errorJSON(w, http.StatusInternalServerError, fmt.Sprintf("Audio generation failed: %v", err))
		return
	}

	wavBytes, err := audio.EncodeWAV(wf)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, fmt.Sprintf("Audio generation failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("Generated %gHz tone", req.Frequency),
		"audio_data":   base64.StdEncoding.EncodeToString(wavBytes),
		"content_type": "audio/wav",
	})
}

func (s *Server) handleAudioSample(w http.ResponseWriter, r *http.Request) {
	clip := synth.SampleClip(synth.DefaultClipSeconds, s.cfg.Audio.SampleRate)
	wavBytes, err := audio.EncodeWAV(clip)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, fmt.Sprintf("encoding sample clip: %v", err))
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wavBytes)))
	w.Write(wavBytes)
}

// analyzeRequest mirrors the test submission sent by the frontend.
type analyzeRequest struct {
	UserInfo struct {
		Age    int    `json:"age"`
		Gender string `json:"gender"`
	} `json:"user_info"`
	FrequencyResponses []struct {
		Frequency int  `json:"frequency"`
		Heard     bool `json:"heard"`
	} `json:"frequency_responses"`
	TestID string `json:"test_id"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	testID := req.TestID
	if testID == "" {
		testID = randomTestID()
	}
	log.Infof("analyzing hearing test %s", testID)

	// Failures keep the client-supplied id so retries correlate.
	fail := func(status int, err error) {
		id := req.TestID
		if id == "" {
			id = "unknown"
		}
		writeJSON(w, status, map[string]any{
			"success":       false,
			"message":       "Analysis failed",
			"test_id":       id,
			"error_details": err.Error(),
		})
	}

	gender := audiometry.Other
	if req.UserInfo.Gender != "" {
		var err error
		gender, err = audiometry.ParseGender(req.UserInfo.Gender)
		if err != nil {
			fail(http.StatusBadRequest, err)
			return
		}
	}

	session := audiometry.NewSession()
	if err := session.Start(audiometry.Profile{Age: req.UserInfo.Age, Gender: gender}); err != nil {
		fail(analyzeStatus(err), err)
		return
	}
	for _, fr := range req.FrequencyResponses {
		if err := session.Record(fr.Frequency, fr.Heard); err != nil {
			fail(analyzeStatus(err), err)
			return
		}
	}

	res, err := s.scorer.Score(session)
	if err != nil {
		fail(analyzeStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Hearing test analyzed successfully",
		"test_id": testID,
		"result": map[string]any{
			"predicted_category": res.Category.String(),
			"confidence_score":   res.Confidence,
			"pta_score":          res.PTA,
			"frequency_analysis": map[string]any{
				"thresholds":         res.Thresholds,
				"pta":                res.PTA,
				"frequencies_tested": res.FrequenciesTested,
				"frequencies_heard":  res.FrequenciesHeard,
			},
			"recommendations": res.Recommendations,
			"risk_level":      res.Risk.String(),
		},
	})
}

// analyzeStatus maps scoring errors to response codes: protocol
// violations are the client's fault, a missing model is an
// availability problem.
func analyzeStatus(err error) int {
	switch {
	case errors.Is(err, classifier.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, audiometry.ErrInvalidProfile),
		errors.Is(err, audiometry.ErrSessionNotStarted),
		errors.Is(err, audiometry.ErrSessionCompleted),
		errors.Is(err, audiometry.ErrDuplicateFrequency),
		errors.Is(err, audiometry.ErrUnknownFrequency),
		errors.Is(err, audiometry.ErrIncompleteSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func randomTestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("test-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func (s *Server) handleTestFrequencies(w http.ResponseWriter, r *http.Request) {
	freqs := audiometry.TestFrequencies()
	writeJSON(w, http.StatusOK, map[string]any{
		"frequencies": freqs,
		"count":       len(freqs),
		"description": "Standard audiometric frequencies in Hz",
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := audiometry.Categories()
	out := make([]map[string]any, 0, len(cats))
	for _, c := range cats {
		min, max, desc := c.BandRange()
		var rng string
		switch {
		case min <= 0:
			rng = fmt.Sprintf("<= %g dB HL", max)
		case max >= 120:
			rng = fmt.Sprintf("> %g dB HL", min-1)
		default:
			rng = fmt.Sprintf("%g-%g dB HL", min, max)
		}
		out = append(out, map[string]any{
			"category":    c.String(),
			"range":       rng,
			"min_db":      min,
			"max_db":      max,
			"description": desc,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		errorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	prof, err := simulate.ParseProfile(r.FormValue("profile"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	clip, err := audio.DecodeWAV(file)
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		errorJSON(w, http.StatusInternalServerError, fmt.Sprintf("decoding upload: %v", err))
		return
	}

	res, err := simulate.RunWithSink(clip, prof, s.relay)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, fmt.Sprintf("simulation failed: %v", err))
		return
	}

	wavBytes, err := audio.EncodeWAV(res.Output)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, fmt.Sprintf("encoding result: %v", err))
		return
	}

	if r.URL.Query().Get("spectra") == "1" {
		writeJSON(w, http.StatusOK, map[string]any{
			"profile":     prof.String(),
			"sample_rate": res.Output.SampleRate,
			"duration_s":  res.Output.Duration(),
			"input_rms":   res.InputRMS,
			"output_rms":  res.OutputRMS,
			"audio_data":  base64.StdEncoding.EncodeToString(wavBytes),
			"spectra":     res.Spectra,
		})
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wavBytes)))
	w.Write(wavBytes)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := simulate.Profiles()
	out := make([]simulate.Info, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Info())
	}
	writeJSON(w, http.StatusOK, out)
}
