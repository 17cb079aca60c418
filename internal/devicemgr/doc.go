// Package devicemgr drives the device lifecycle state machine: discovery,
// pairing, setup, running and removal. Manager is the only component
// allowed to mutate the configured-device set, the discovered-descriptor
// set, and the two pairing transaction tables.
package devicemgr
