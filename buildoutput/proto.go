// Copyright 2026 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package buildoutput

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"android/resplit/splits"
)

// Wire layout of output.pb:
//
//	message BuildElements { repeated BuildOutput outputs = 1; }
//	message BuildOutput {
//	  string artifact_type = 1;
//	  OutputConfiguration config = 2;
//	  string path = 3;
//	  repeated Property properties = 4;
//	}
//	message Property { string key = 1; string value = 2; }
//	message OutputConfiguration {
//	  string type = 1;
//	  repeated Filter filters = 2;
//	  int64 version_code = 3;
//	  string version_name = 4;
//	  bool enabled = 5;
//	  string output_file = 6;
//	  string full_name = 7;
//	  string base_name = 8;
//	  string display_name = 9;
//	}
//	message Filter { string filter_type = 1; string identifier = 2; }

// MarshalProto encodes e in the output.pb wire format. Properties are written sorted by key.
func MarshalProto(e *BuildElements) []byte {
	var b []byte
	for _, o := range e.outputs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalOutput(o))
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func marshalOutput(o BuildOutput) []byte {
	var b []byte
	b = appendString(b, 1, string(o.Type))
	if o.Config != nil {
		b = appendMessage(b, 2, marshalConfig(o.Config))
	}
	b = appendString(b, 3, o.Path)

	keys := make([]string, 0, len(o.Properties))
	for k := range o.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var p []byte
		p = appendString(p, 1, k)
		p = appendString(p, 2, o.Properties[k])
		b = appendMessage(b, 4, p)
	}
	return b
}

func marshalConfig(c *splits.OutputConfiguration) []byte {
	var b []byte
	b = appendString(b, 1, string(c.Type))
	for _, f := range c.Filters {
		var fb []byte
		fb = appendString(fb, 1, string(f.FilterType))
		fb = appendString(fb, 2, f.Identifier)
		b = appendMessage(b, 2, fb)
	}
	if c.VersionCode != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(c.VersionCode)))
	}
	b = appendString(b, 4, c.VersionName)
	if c.Enabled {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendString(b, 6, c.OutputFile)
	b = appendString(b, 7, c.FullName)
	b = appendString(b, 8, c.BaseName)
	b = appendString(b, 9, c.DisplayName)
	return b
}

// fields walks the fields of one message, calling fn with the raw value of every field. Bytes
// fields get their payload, varints get nil and the value.
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			b = b[n:]
		case protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, nil, x); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// unmarshalProto decodes the output.pb wire format. Unknown fields are skipped.
func unmarshalProto(b []byte) (*BuildElements, error) {
	e := &BuildElements{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != 1 || typ != protowire.BytesType {
			return nil
		}
		o, err := unmarshalOutput(v)
		if err != nil {
			return err
		}
		e.outputs = append(e.outputs, o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("malformed build output proto: %w", err)
	}
	return e, nil
}

func unmarshalOutput(b []byte) (BuildOutput, error) {
	var o BuildOutput
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case 1:
			o.Type = ArtifactType(v)
		case 2:
			c, err := unmarshalConfig(v)
			if err != nil {
				return err
			}
			o.Config = c
		case 3:
			o.Path = string(v)
		case 4:
			var key, value string
			err := fields(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				switch {
				case num == 1 && typ == protowire.BytesType:
					key = string(v)
				case num == 2 && typ == protowire.BytesType:
					value = string(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if o.Properties == nil {
				o.Properties = make(map[string]string)
			}
			o.Properties[key] = value
		}
		return nil
	})
	return o, err
}

func unmarshalConfig(b []byte) (*splits.OutputConfiguration, error) {
	c := &splits.OutputConfiguration{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		if typ == protowire.VarintType {
			switch num {
			case 3:
				c.VersionCode = int(int64(x))
			case 5:
				c.Enabled = protowire.DecodeBool(x)
			}
			return nil
		}
		switch num {
		case 1:
			c.Type = splits.OutputType(v)
		case 2:
			var f splits.FilterData
			err := fields(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				switch {
				case num == 1 && typ == protowire.BytesType:
					f.FilterType = splits.FilterType(v)
				case num == 2 && typ == protowire.BytesType:
					f.Identifier = string(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			c.Filters = append(c.Filters, f)
		case 4:
			c.VersionName = string(v)
		case 6:
			c.OutputFile = string(v)
		case 7:
			c.FullName = string(v)
		case 8:
			c.BaseName = string(v)
		case 9:
			c.DisplayName = string(v)
		}
		return nil
	})
	return c, err
}
