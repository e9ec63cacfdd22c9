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

// Package symbols converts the R.txt symbol table written by aapt2 into the symbol list with
// package name consumed by modules depending on this one, and generates the R classes of
// libraries from those lists.
package symbols

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Symbol is one resource of an R.txt file. Symbol lists carry no values.
type Symbol struct {
	JavaType string
	Type     string
	Name     string
	Value    string
	// Attribute names of a styleable, and their indices.
	Children    []string
	ChildValues []string
}

// ReadSymbolTable reads an R.txt file, attaching styleable attribute indices to their styleable.
func ReadSymbolTable(r io.Reader) ([]Symbol, error) {
	var symbols []Symbol
	styleables := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: malformed symbol %q", lineNum, line)
		}
		javaType, resType, name := fields[0], fields[1], fields[2]
		value := strings.Join(fields[3:], " ")

		switch {
		case resType == "styleable" && javaType == "int[]":
			styleables[name] = len(symbols)
			symbols = append(symbols, Symbol{JavaType: javaType, Type: resType, Name: name, Value: value})
		case resType == "styleable":
			parent, child, ok := styleableParent(styleables, name)
			if !ok {
				return nil, fmt.Errorf("line %d: styleable attribute %q has no styleable", lineNum, name)
			}
			symbols[parent].Children = append(symbols[parent].Children, child)
			symbols[parent].ChildValues = append(symbols[parent].ChildValues, value)
		default:
			symbols = append(symbols, Symbol{JavaType: javaType, Type: resType, Name: name, Value: value})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return symbols, nil
}

// styleableParent finds the longest styleable name that, followed by '_', prefixes name.
func styleableParent(styleables map[string]int, name string) (int, string, bool) {
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '_' {
			continue
		}
		if idx, ok := styleables[name[:i]]; ok {
			return idx, name[i+1:], true
		}
	}
	return 0, "", false
}

// ManifestPackage returns the package attribute of an AndroidManifest.xml.
func ManifestPackage(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return "", fmt.Errorf("no manifest element")
		} else if err != nil {
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "manifest" {
			return "", fmt.Errorf("root element is %q, expected manifest", start.Name.Local)
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "package" && attr.Name.Space == "" {
				return attr.Value, nil
			}
		}
		return "", fmt.Errorf("manifest has no package attribute")
	}
}

// WriteSymbolList writes symbols preceded by the package name, one "<type> <name>" line per
// symbol, styleables followed by their attribute names.
func WriteSymbolList(w io.Writer, packageName string, symbols []Symbol) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, packageName)
	for _, s := range symbols {
		bw.WriteString(s.Type)
		bw.WriteString(" ")
		bw.WriteString(s.Name)
		for _, c := range s.Children {
			bw.WriteString(" ")
			bw.WriteString(c)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// WriteSymbolListWithPackageName converts the R.txt at rTxt to a symbol list named after the
// package of manifest, and writes it to out.
func WriteSymbolListWithPackageName(rTxt, manifest, out string) error {
	m, err := os.Open(manifest)
	if err != nil {
		return err
	}
	packageName, err := ManifestPackage(m)
	m.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", manifest, err)
	}

	r, err := os.Open(rTxt)
	if err != nil {
		return err
	}
	symbols, err := ReadSymbolTable(r)
	r.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", rTxt, err)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := WriteSymbolList(f, packageName, symbols); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
