package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
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
	cmdSchema := compile("cmd.schema.json")
	stateSchema := compile("state.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "principal":"acct:alice",
	  "capabilities":{"max_queue":8}
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "player_id":"P1",
	  "tick":0,
	  "health":100,
	  "joined":false,
	  "world":{
	    "world_id":"GRIDLANDS",
	    "tick_rate_hz":5,
	    "grid_width":24,
	    "grid_height":24,
	    "collect_interval_ticks":50,
	    "drop_on_collect":true,
	    "health_cost_per_move":1,
	    "max_players":50,
	    "epoch":1
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var cmd any
	_ = json.Unmarshal([]byte(`{
	  "type":"CMD",
	  "protocol_version":"1.0",
	  "tick":12,
	  "player_id":"P1",
	  "commands":[
	    {"id":"C1","type":"JOIN"},
	    {"id":"C2","type":"MOVE","direction":"UP"},
	    {"id":"C3","type":"COLLECT_TOKENS"}
	  ]
	}`), &cmd)
	validate(cmdSchema, cmd)

	var state any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATE",
	  "protocol_version":"1.0",
	  "tick":13,
	  "epoch":1,
	  "active":true,
	  "self":{"player_id":"P1","joined":true,"pos":[3,7],"health":99},
	  "cells":[
	    {"pos":[3,7],"occupant":"P1"},
	    {"pos":[0,0],"token_deposit":500},
	    {"pos":[5,5],"health_deposit":100,"occupant":"P2"}
	  ],
	  "events":[
	    {"t":"ACTION_RESULT","type":"MOVE","ref":"C2","ok":true},
	    {"t":"PLAYER_MOVED","player":"P1","pos":[3,7],"health":99}
	  ]
	}`), &state)
	validate(stateSchema, state)
}
