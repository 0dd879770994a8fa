// Package admin implements the registrar's admin command grammar, dispatch,
// and response formatting: the core's command-processing surface that
// transports (a socket, a REPL, a future HTTP endpoint) share. Grounded on
// original_source/src/adapters/admin.rs (Command, RawFieldName, Response,
// process_admin), which the Rust original keeps in its own module for
// exactly this reason.
package admin

import (
	"fmt"
	"strings"

	"github.com/caasmo/regverify/engine"
	"github.com/caasmo/regverify/primitives"
)

// RawFieldName is the admin-facing field-name token accepted by the verify
// command. Unlike engine.RawFieldName, All is a legitimate member here:
// the admin dispatch layer expands it into a full manual verification
// instead of passing it through to engine.VerifyManually, which rejects it.
type RawFieldName string

const (
	RawFieldLegalName   RawFieldName = "legal_name"
	RawFieldDisplayName RawFieldName = "display_name"
	RawFieldEmail       RawFieldName = "email"
	RawFieldWeb         RawFieldName = "web"
	RawFieldTwitter     RawFieldName = "twitter"
	RawFieldMatrix      RawFieldName = "matrix"
	RawFieldAll         RawFieldName = "all"
)

// ParseRawFieldName normalizes a token (trims whitespace, strips '-'/'_',
// lowercases) and matches it against the accepted grammar, mirroring the
// Rust original's RawFieldName::from_str normalization.
func ParseRawFieldName(s string) (RawFieldName, bool) {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.TrimSpace(s)

	switch s {
	case "legalname":
		return RawFieldLegalName, true
	case "displayname":
		return RawFieldDisplayName, true
	case "email":
		return RawFieldEmail, true
	case "web":
		return RawFieldWeb, true
	case "twitter":
		return RawFieldTwitter, true
	case "matrix":
		return RawFieldMatrix, true
	case "all":
		return RawFieldAll, true
	default:
		return "", false
	}
}

func (f RawFieldName) toEngine() (engine.RawFieldName, bool) {
	switch f {
	case RawFieldLegalName:
		return engine.RawFieldLegalName, true
	case RawFieldDisplayName:
		return engine.RawFieldDisplayName, true
	case RawFieldEmail:
		return engine.RawFieldEmail, true
	case RawFieldWeb:
		return engine.RawFieldWeb, true
	case RawFieldTwitter:
		return engine.RawFieldTwitter, true
	case RawFieldMatrix:
		return engine.RawFieldMatrix, true
	default:
		return "", false
	}
}

func (f RawFieldName) String() string { return string(f) }

// CommandKind tags the variant of Command parsed from an admin input line.
type CommandKind int

const (
	CommandStatus CommandKind = iota
	CommandVerify
	CommandHelp
)

// Command is a parsed admin request, scoped to a single chain (the
// transport is responsible for knowing which chain it administers — the
// Rust original assumes one implicit chain per deployment; this module
// makes that assumption explicit instead of hardcoding it).
type Command struct {
	Kind    CommandKind
	Address primitives.ChainAddress
	Chain   primitives.ChainName
	Fields  []RawFieldName
}

// ParseCommand parses one admin input line into a Command, or returns a
// ResponseUnknownCommand/ResponseInvalidSyntax Response describing why not.
// Grounded on Command::from_str.
func ParseCommand(chain primitives.ChainName, line string) (Command, *Response) {
	line = strings.Join(strings.Fields(line), " ")
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, "status"):
		parts := strings.Split(line, " ")[1:]
		if len(parts) != 1 || parts[0] == "" {
			return Command{}, unknownCommand()
		}
		return Command{Kind: CommandStatus, Address: primitives.ChainAddress(parts[0]), Chain: chain}, nil

	case strings.HasPrefix(line, "verify"):
		parts := strings.Split(line, " ")[1:]
		if len(parts) < 2 {
			return Command{}, unknownCommand()
		}
		fields := make([]RawFieldName, 0, len(parts)-1)
		for _, tok := range parts[1:] {
			f, ok := ParseRawFieldName(tok)
			if !ok {
				return Command{}, invalidSyntax(tok)
			}
			fields = append(fields, f)
		}
		return Command{Kind: CommandVerify, Address: primitives.ChainAddress(parts[0]), Chain: chain, Fields: fields}, nil

	case line == "help" || strings.HasPrefix(line, "help "):
		if strings.Fields(line)[0] != "help" || len(strings.Fields(line)) > 1 {
			return Command{}, unknownCommand()
		}
		return Command{Kind: CommandHelp}, nil

	default:
		return Command{}, unknownCommand()
	}
}

// ResponseKind tags the variant of Response returned to the admin caller.
type ResponseKind int

const (
	ResponseStatusOK ResponseKind = iota
	ResponseVerified
	ResponseUnknownCommand
	ResponseIdentityNotFound
	ResponseInvalidSyntax
	ResponseInternalError
	ResponseHelp
)

// Response is the result of dispatching a Command, formatted for display by
// String. Grounded on the Response enum in adapters/admin.rs.
type Response struct {
	Kind    ResponseKind
	State   *primitives.JudgementStateBlanked
	Address primitives.ChainAddress
	Fields  []RawFieldName
	Input   string
}

func unknownCommand() *Response            { return &Response{Kind: ResponseUnknownCommand} }
func invalidSyntax(input string) *Response { return &Response{Kind: ResponseInvalidSyntax, Input: input} }

func (r Response) String() string {
	switch r.Kind {
	case ResponseStatusOK:
		return fmt.Sprintf("%+v", *r.State)
	case ResponseVerified:
		names := make([]string, len(r.Fields))
		for i, f := range r.Fields {
			names[i] = string(f)
		}
		return "Verified the following fields: " + strings.Join(names, ", ")
	case ResponseUnknownCommand:
		return "The provided command is unknown"
	case ResponseIdentityNotFound:
		return "There is no pending judgement request for the provided identity"
	case ResponseInvalidSyntax:
		if r.Input != "" {
			return fmt.Sprintf("Invalid input '%s'", r.Input)
		}
		return "Invalid input"
	case ResponseInternalError:
		return "An internal error occured. Please contact the architects."
	case ResponseHelp:
		return "status <ADDR>\t\t\tShow the current verification status of the specified address.\n" +
			"verify <ADDR> <FIELD>...\tVerify one or multiple fields of the specified address.\n"
	default:
		return "unknown response"
	}
}
