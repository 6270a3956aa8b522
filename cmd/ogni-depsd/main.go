// Command ogni-depsd is the optional dependency-metadata HTTP service named
// in §6 of the core spec: GET /health, POST /resolve with body
// {family, name, version?} returning {package, version, install_cmd}.
// Built on gorilla/mux, the router the wider pack reaches for
// (containifyci-engine-ci) wherever a small HTTP API needs path-based
// dispatch.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/resolver"
)

type resolveRequest struct {
	Family  string `json:"family"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type resolveResponse struct {
	Package    string   `json:"package"`
	Version    string   `json:"version,omitempty"`
	InstallCmd []string `json:"install_cmd"`
}

// server answers /resolve by constructing a Requirement for the requested
// family and consulting a resolver.Composite of the ecosystem resolvers
// (PyPI, CPAN, npm, Cargo, Hackage, CRAN, Go modules); there is no apt
// resolver in it.
type server struct {
	resolvers resolver.Composite
}

func newServer() *server {
	return &server{
		resolvers: resolver.Composite{
			resolver.NewPyPI(),
			resolver.NewCPAN(),
			resolver.NewNPM(),
			resolver.NewCargo(),
			resolver.NewHackage(),
			resolver.NewCRAN(),
			resolver.NewGolang(),
		},
	}
}

func (s *server) toRequirement(req resolveRequest) (requirement.Requirement, bool) {
	switch requirement.Family(req.Family) {
	case requirement.FamilyPythonPackage:
		r, err := requirement.NewPythonPackage(req.Name, req.Version)
		return r, err == nil
	case requirement.FamilyPerlModule:
		r, err := requirement.NewPerlModule(req.Name, req.Version)
		return r, err == nil
	case requirement.FamilyNodePackage:
		r, err := requirement.NewNodePackage(req.Name, req.Version)
		return r, err == nil
	case requirement.FamilyRustCrate:
		r, err := requirement.NewRustCrate(req.Name, req.Version, nil)
		return r, err == nil
	case requirement.FamilyHaskellPackage:
		r, err := requirement.NewHaskellPackage(req.Name, req.Version)
		return r, err == nil
	case requirement.FamilyRPackage:
		r, err := requirement.NewRPackage(req.Name, req.Version)
		return r, err == nil
	case requirement.FamilyGoPackage:
		r, err := requirement.NewGoPackage(req.Name, req.Version)
		return r, err == nil
	case requirement.FamilyBinary:
		r, err := requirement.NewBinary(req.Name)
		return r, err == nil
	default:
		return nil, false
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	wreq, ok := s.toRequirement(req)
	if !ok {
		http.Error(w, "unknown or malformed requirement family", http.StatusNotFound)
		return
	}

	pkg, ok := s.resolvers.Resolve(wreq)
	if !ok {
		http.NotFound(w, r)
		return
	}
	argv, _ := s.resolvers.InstallCmd(wreq)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resolveResponse{
		Package:    pkg.Name,
		Version:    pkg.Version,
		InstallCmd: argv,
	})
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/resolve", s.handleResolve).Methods(http.MethodPost)
	return r
}

func main() {
	addr := flag.String("listen", ":8080", "address to listen on")
	flag.Parse()

	s := newServer()
	srv := &http.Server{
		Addr:         *addr,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Printf("ogni-depsd listening on %s", *addr)
	log.Fatal(srv.ListenAndServe())
}
