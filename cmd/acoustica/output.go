//nolint:wrapcheck
package main

import (
	"os"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/acoustica"
	"github.com/farcloser/acoustica/internal/output"
)

func outputResults(
	paths []string,
	results []*acoustica.Result,
	formatName string,
	fields output.Fields,
	debug bool,
) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	data := make([]*format.Data, len(paths))

	for i, path := range paths {
		var meta map[string]any
		if debug || fields.Images {
			meta = output.ResultToMap(results[i], fields)
		} else {
			meta = output.FriendlyResult(results[i], fields)
		}

		data[i] = &format.Data{
			Object: path,
			Meta:   meta,
		}
	}

	return formatter.PrintAll(data, os.Stdout)
}
