// Package wayland implements just enough of the Wayland wire protocol to own
// the clipboard through the wlr data-control extension.
package wayland
