package signer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/mr-tron/base58/base58"

	"github.com/systmms/coldsign/internal/container"
	"github.com/systmms/coldsign/internal/crypto"
)

// Request is one operation submitted through the call interface.
type Request struct {
	// Action selects the operation: create-container, sign, sign-direct,
	// or check.
	Action string `json:"action"`
	// Key is the base64-encoded 32- or 64-byte secret, for create-container
	// and sign-direct.
	Key string `json:"key,omitempty"`
	// Passphrase unlocks or seals a container.
	Passphrase string `json:"passphrase,omitempty"`
	// Container is the inline container document, for sign.
	Container json.RawMessage `json:"container,omitempty"`
	// Message is the base64-encoded payload to sign. Absent means empty.
	Message string `json:"message,omitempty"`
	// Mode selects the output layout: "signature" (default) or "envelope".
	Mode string `json:"mode,omitempty"`
}

// Envelope is the uniform wrapper every call returns: a status code and
// either the operation's JSON payload or an error message.
type Envelope struct {
	StatusCode int    `json:"status_code"`
	Payload    string `json:"payload"`
}

// signatureResult is the wire form of a signing outcome. The signature and
// identity travel base58, the envelope travels base64.
type signatureResult struct {
	Signature      string `json:"signature"`
	PublicIdentity string `json:"public_identity"`
	SignedMessage  string `json:"signed_message,omitempty"`
}

// Call runs one request and wraps the outcome in an envelope. It never
// returns a Go error: failures become status codes with the message as
// payload.
func (s *Signer) Call(req Request) Envelope {
	payload, err := s.dispatch(req)
	if err != nil {
		return Envelope{StatusCode: CodeFor(err), Payload: err.Error()}
	}
	return Envelope{StatusCode: StatusOK, Payload: payload}
}

// CallRaw parses raw request bytes and runs them through Call. The raw
// buffer is consumed: it is wiped before return because it may carry a
// passphrase or key material.
func (s *Signer) CallRaw(raw []byte) Envelope {
	defer memguard.WipeBytes(raw)

	if len(bytes.TrimSpace(raw)) == 0 {
		return Envelope{StatusCode: StatusMissingInput, Payload: "empty request"}
	}
	if !utf8.Valid(raw) {
		return Envelope{StatusCode: StatusBadText, Payload: ErrBadText.Error()}
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Envelope{StatusCode: StatusSerialization, Payload: fmt.Sprintf("request is not valid JSON: %v", err)}
	}
	return s.Call(req)
}

// RunOnce services exactly one request from r and writes the envelope to w,
// newline-terminated. The returned status code doubles as the process exit
// code.
func (s *Signer) RunOnce(r io.Reader, w io.Writer) int {
	raw, err := io.ReadAll(r)
	if err != nil {
		env := Envelope{StatusCode: StatusCrypto, Payload: fmt.Sprintf("reading request: %v", err)}
		writeEnvelope(w, env)
		return env.StatusCode
	}

	env := s.CallRaw(raw)
	writeEnvelope(w, env)
	return env.StatusCode
}

func writeEnvelope(w io.Writer, env Envelope) {
	enc, err := json.Marshal(env)
	if err != nil {
		fmt.Fprintf(w, "{\"status_code\":%d,\"payload\":\"encoding failure\"}\n", StatusSerialization)
		return
	}
	fmt.Fprintf(w, "%s\n", enc)
}

func (s *Signer) dispatch(req Request) (string, error) {
	switch req.Action {
	case "create-container":
		secret, err := decodeKey(req.Key)
		if err != nil {
			return "", err
		}
		pass, err := requirePassphrase(req.Passphrase)
		if err != nil {
			memguard.WipeBytes(secret)
			return "", err
		}
		c, err := s.CreateContainer(secret, pass)
		if err != nil {
			return "", err
		}
		doc, err := container.Encode(c)
		if err != nil {
			return "", err
		}
		return string(doc), nil

	case "sign":
		if len(req.Container) == 0 {
			return "", fmt.Errorf("%w: container is required", ErrInput)
		}
		pass, err := requirePassphrase(req.Passphrase)
		if err != nil {
			return "", err
		}
		msg, err := decodeMessage(req.Message)
		if err != nil {
			return "", err
		}
		mode, err := parseMode(req.Mode)
		if err != nil {
			return "", err
		}
		res, err := s.Sign(req.Container, pass, msg, mode)
		if err != nil {
			return "", err
		}
		return EncodeResult(res)

	case "sign-direct":
		secret, err := decodeKey(req.Key)
		if err != nil {
			return "", err
		}
		msg, err := decodeMessage(req.Message)
		if err != nil {
			memguard.WipeBytes(secret)
			return "", err
		}
		mode, err := parseMode(req.Mode)
		if err != nil {
			memguard.WipeBytes(secret)
			return "", err
		}
		res, err := s.SignDirect(secret, msg, mode)
		if err != nil {
			return "", err
		}
		return EncodeResult(res)

	case "check":
		out, err := json.Marshal(s.Check())
		if err != nil {
			return "", err
		}
		return string(out), nil

	case "":
		return "", fmt.Errorf("%w: action is required", ErrInput)
	}
	return "", fmt.Errorf("%w: unknown action '%s'", ErrInput, req.Action)
}

func decodeKey(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInput)
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not base64: %v", ErrBadEncoding, err)
	}
	return raw, nil
}

func requirePassphrase(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: passphrase is required", ErrInput)
	}
	return []byte(value), nil
}

func decodeMessage(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: message is not base64: %v", ErrBadEncoding, err)
	}
	return raw, nil
}

func parseMode(value string) (crypto.Mode, error) {
	switch value {
	case "", "signature":
		return crypto.ModeSignature, nil
	case "envelope":
		return crypto.ModeEnvelope, nil
	}
	return 0, fmt.Errorf("%w: unknown mode '%s'", ErrInput, value)
}

// EncodeResult renders a signing outcome in its wire form. The process
// subcommands share it with the call interface so both surfaces emit the
// same payload.
func EncodeResult(res *Result) (string, error) {
	wire := signatureResult{
		Signature:      base58.Encode(res.Signature),
		PublicIdentity: base58.Encode(res.PublicIdentity),
	}
	if len(res.SignedMessage) > 0 {
		wire.SignedMessage = base64.StdEncoding.EncodeToString(res.SignedMessage)
	}
	out, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
