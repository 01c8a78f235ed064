// Package harness runs command scenarios against the runtime in both load
// orders and checks what the processor and storage observed.
//
// A page snippet and the runtime load independently, so every scenario runs
// twice: once with the commands pushed before Setup, once with Setup
// attached first. Both runs must produce the same trace.
//
// # Scenario Format
//
//	name: positive_persist_time
//	description: "set with a positive persist time saves with that ttl"
//	persist_time: 1337
//	commands:
//	  - [config, mock, {}, mock, {}]
//	  - [set, "a key", 3]
//	expect:
//	  persist_time_calls:
//	    - ["a key", 3]
//	  saves:
//	    - ["a key", 3, 1337]
//	  log_len: 2
//
// persist_time is what the mock processor's PersistTime returns; "inf" means
// forever. The name "mock" resolves to the recording processor and storage
// in config commands; the built-in catalog names work too.
//
// # Expectations
//
// Every expect field is optional; an omitted field is not checked, an empty
// list asserts no calls.
//
//   - persist_time_calls: [key, value] per PersistTime call
//   - saves: [key, value] or [key, value, ttl] per Save call
//   - loads: [key] per Load call
//   - process_event_calls: [name, options] per ProcessEvent call
//   - failed_commands: names of commands whose handler failed
//   - log_len: commands in the log after the run
//
// Forever TTLs appear as "inf" in traces and expectations.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/positive_persist_time.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
