// Package hwbus fans hardware-sourced events (radio, UPnP, a periodic
// timer) out to every plugin that declared a need for them, in plugin
// registration order, and exposes a Status snapshot for operational
// visibility.
package hwbus
