// Package cos provides common low-level types and utilities for all kernel packages.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON is used to Marshal/Unmarshal configuration and stats and is initialized in init function.
var JSON jsoniter.API

func init() {
	jsonConf := jsoniter.Config{
		EscapeHTML:             false,
		ValidateJsonRawMessage: false,
		DisallowUnknownFields:  true, // make sure we have exactly the struct user requested.
		SortMapKeys:            true,
	}
	JSON = jsonConf.Froze()
}

func MustMarshalToString(v any) string {
	s, err := JSON.MarshalToString(v)
	AssertNoErr(err)
	return s
}

// MustMarshal marshals v and panics if error occurs.
func MustMarshal(v any) []byte {
	b, err := JSON.Marshal(v)
	AssertNoErr(err)
	return b
}

func MustMarshalIndent(v any) []byte {
	b, err := JSON.MarshalIndent(v, "", "  ")
	AssertNoErr(err)
	return b
}
