package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"amoebotsim.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	roundSchema := compile("round.schema.json")
	stepSchema := compile("step.schema.json")
	seekSchema := compile("seek.schema.json")
	errorSchema := compile("error.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"viewer1",
	  "driver":true
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "sim_id":"sim_demo",
	  "pins_per_edge":2,
	  "round":0
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var round any
	_ = json.Unmarshal([]byte(`{
	  "type":"ROUND",
	  "round":12,
	  "digest":"deadbeef",
	  "moved":["P1"],
	  "beeps":3,
	  "msgs":1,
	  "particles":[
	    {"id":"P1","tail_x":0,"tail_y":0,"head_dir":1},
	    {"id":"P2","tail_x":2,"tail_y":0,"head_dir":-1,"finished":true}
	  ]
	}`), &round)
	validate(roundSchema, round)

	var step any
	_ = json.Unmarshal([]byte(`{"type":"STEP","count":5}`), &step)
	validate(stepSchema, step)

	var seek any
	_ = json.Unmarshal([]byte(`{"type":"SEEK","round":7}`), &seek)
	validate(seekSchema, seek)

	var errMsg any
	_ = json.Unmarshal([]byte(`{"type":"ERROR","code":"E_HALTED","msg":"movement conflict in round 7"}`), &errMsg)
	validate(errorSchema, errMsg)
}

func TestDecodeBase_RoutesByType(t *testing.T) {
	msg := protocol.RoundMsg{
		Type:   protocol.TypeRound,
		Round:  3,
		Digest: "deadbeef",
		Particles: []protocol.ParticleState{
			{ID: "P1", HeadDir: -1},
		},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode base: %v", err)
	}
	if base.Type != protocol.TypeRound {
		t.Fatalf("unexpected type %q", base.Type)
	}
}
