package openai

import "errors"

var errNoChoices = errors.New("no choices returned")
