// Package logging wires structured slog output to a size-rotated file under
// ~/.localdocs/logs/. The --debug flag raises the level to debug. The CLI
// keeps stderr quiet so the serve command's stdio transport stays clean.
package logging
