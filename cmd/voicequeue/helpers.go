package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"voicequeue/internal/ipc"
)

const shortIDLength = 8

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parsePosition converts a 1-based position argument to a zero-based index.
func parsePosition(arg string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid position %q: expected a number starting at 1", arg)
	}
	return value - 1, nil
}

// resolveLineID resolves a queue position, full id or unique id prefix to a
// line id.
func resolveLineID(client *ipc.Client, arg string) (string, error) {
	ids, err := resolveLineIDs(client, []string{arg})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func resolveLineIDs(client *ipc.Client, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	resp, err := client.LinesList(nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := matchLine(resp.Lines, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func matchLine(items []ipc.Line, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("line id or position is required")
	}
	if position, err := strconv.Atoi(arg); err == nil {
		if position < 1 || position > len(items) {
			return "", fmt.Errorf("line %d out of range (queue has %d lines)", position, len(items))
		}
		return items[position-1].ID, nil
	}
	var match string
	for _, line := range items {
		if line.ID == arg {
			return line.ID, nil
		}
		if strings.HasPrefix(line.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("line id prefix %q is ambiguous", arg)
			}
			match = line.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("line %q not found", arg)
	}
	return match, nil
}
