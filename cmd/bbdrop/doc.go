// Command bbdrop is the interactive front end: it uploads folders in the
// foreground, manages the shared queue the bbdropd daemon drains, and
// inspects configuration and host state.
package main
