package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output writes command results as text tables or as a JSON envelope.
// Diagnostics go to ErrWriter so they never mix with JSON on Writer.
type Output struct {
	Format    string // "text" | "json"
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the JSON envelope: {"status":"ok","data":...} or
// {"status":"error","error":{...}}.
type Response struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

type ResponseError struct {
	Code    string `json:"code"` // see ErrorCode
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (o *Output) JSON() bool { return o.Format == "json" }

func (o *Output) encode(r Response) error {
	enc := json.NewEncoder(o.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// Success writes data. Text mode prints it with %v on one line.
func (o *Output) Success(data any) error {
	if o.JSON() {
		return o.encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(o.Writer, data)
	return err
}

// Render writes data as the JSON envelope, or calls text for the table
// form.
func (o *Output) Render(data any, text func(w io.Writer) error) error {
	if o.JSON() {
		return o.Success(data)
	}
	return text(o.Writer)
}

// Error reports a failed command. Details are printed in text mode only
// with --verbose.
func (o *Output) Error(code, message string, details any) error {
	if o.JSON() {
		return o.encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message, Details: details},
		})
	}
	if _, err := fmt.Fprintf(o.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if o.Verbose && details != nil {
		_, err := fmt.Fprintf(o.Writer, "  details: %v\n", details)
		return err
	}
	return nil
}

// Verbosef prints a progress line on ErrWriter when --verbose is set.
func (o *Output) Verbosef(format string, args ...any) {
	if !o.Verbose {
		return
	}
	w := o.ErrWriter
	if w == nil {
		w = o.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
