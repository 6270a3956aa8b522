package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jelmer/ognibuild/problem"
	"github.com/pkg/errors"
)

// HTTPAnalyzer calls an external log-analysis service (§1's out-of-scope
// collaborator) over net/http. It is the production Analyzer; Fallback is
// used when Endpoint is empty.
type HTTPAnalyzer struct {
	Endpoint string
	Client   *http.Client
}

var _ Analyzer = (*HTTPAnalyzer)(nil)

func NewHTTPAnalyzer(endpoint string) *HTTPAnalyzer {
	return &HTTPAnalyzer{Endpoint: endpoint, Client: &http.Client{Timeout: 30 * time.Second}}
}

type analyzeRequest struct {
	Lines []string `json:"lines"`
	Phase string   `json:"phase"`
}

// wireProblem is the analyser's response shape: a Kind tag plus a flat
// string-keyed field bag, loose enough to cover every concrete Problem
// variant without a response schema per Kind.
type wireProblem struct {
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func (a *HTTPAnalyzer) Analyze(lines []string, phase string) (problem.Problem, error) {
	body, err := json.Marshal(analyzeRequest{Lines: lines, Phase: phase})
	if err != nil {
		return nil, errors.Wrap(err, "encoding analyze request")
	}

	client := a.client()
	timeout := client.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building analyze request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling log analyser")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("log analyser returned status %d", resp.StatusCode)
	}

	var wp wireProblem
	if err := json.NewDecoder(resp.Body).Decode(&wp); err != nil {
		return nil, errors.Wrap(err, "decoding analyze response")
	}
	return fromWire(wp), nil
}

func (a *HTTPAnalyzer) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func fromWire(wp wireProblem) problem.Problem {
	switch problem.Kind(wp.Kind) {
	case problem.KindMissingCommand:
		return problem.MissingCommand{Command: wp.Fields["command"]}
	case problem.KindMissingPythonModule:
		return problem.MissingPythonModule{
			Module:     wp.Fields["module"],
			MinVersion: wp.Fields["min_version"],
			PythonVer:  wp.Fields["python_version"],
		}
	case problem.KindMissingPerlModule:
		return problem.MissingPerlModule{Module: wp.Fields["module"], Version: wp.Fields["version"]}
	case problem.KindMissingHeader:
		return problem.MissingHeader{Header: wp.Fields["header"]}
	case problem.KindMissingPkgConfig:
		return problem.MissingPkgConfig{Module: wp.Fields["module"], MinVersion: wp.Fields["min_version"]}
	case problem.KindMissingAutoconfMacro:
		return problem.MissingAutoconfMacro{Macro: wp.Fields["macro"]}
	case problem.KindUnsupportedPythonVersion:
		return problem.UnsupportedPythonVersion{Required: wp.Fields["required"], Running: wp.Fields["running"]}
	default:
		if desc, ok := wp.Fields["description"]; ok {
			return problem.Unknown{Description: desc}
		}
		return problem.Unknown{Description: fmt.Sprintf("unrecognised analyser kind %q", wp.Kind)}
	}
}
