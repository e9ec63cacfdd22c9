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

package symbols

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadSymbolList reads a symbol list with package name as written by WriteSymbolList.
func ReadSymbolList(r io.Reader) (string, []Symbol, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("empty symbol list")
	}
	packageName := strings.TrimSpace(scanner.Text())
	if packageName == "" {
		return "", nil, fmt.Errorf("line 1: missing package name")
	}

	var symbols []Symbol
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return "", nil, fmt.Errorf("line %d: malformed symbol %q", lineNum, scanner.Text())
		}
		symbols = append(symbols, Symbol{Type: fields[0], Name: fields[1], Children: fields[2:]})
	}
	if err := scanner.Err(); err != nil {
		return "", nil, err
	}
	return packageName, symbols, nil
}

// GenerateLibraryRClasses writes an R.java below sourceOut for the package of every library
// symbol list. Each class holds the final values, taken from the R.txt at mainRTxt, of the
// resources its library declares. Libraries in mainPackage are skipped since the link already
// generated that R class; libraries sharing a package get one merged class.
func GenerateLibraryRClasses(mainRTxt string, libraries []string, mainPackage, sourceOut string) error {
	f, err := os.Open(mainRTxt)
	if err != nil {
		return err
	}
	table, err := ReadSymbolTable(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", mainRTxt, err)
	}

	var packages []string
	declared := make(map[string]map[string]bool)
	for _, library := range libraries {
		l, err := os.Open(library)
		if err != nil {
			return err
		}
		packageName, symbols, err := ReadSymbolList(l)
		l.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", library, err)
		}
		if packageName == mainPackage {
			continue
		}
		if declared[packageName] == nil {
			declared[packageName] = make(map[string]bool)
			packages = append(packages, packageName)
		}
		for _, s := range symbols {
			declared[packageName][symbolKey(s.Type, s.Name)] = true
			for _, c := range s.Children {
				declared[packageName][symbolKey(s.Type, s.Name+"_"+c)] = true
			}
		}
	}

	for _, packageName := range packages {
		if err := writeRClass(sourceOut, packageName, table, declared[packageName]); err != nil {
			return err
		}
	}
	return nil
}

func symbolKey(resType, name string) string {
	return resType + "/" + name
}

func writeRClass(sourceOut, packageName string, table []Symbol, declared map[string]bool) error {
	dir := filepath.Join(sourceOut, filepath.FromSlash(strings.ReplaceAll(packageName, ".", "/")))
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "R.java"))
	if err != nil {
		return err
	}
	if err := WriteRClass(f, packageName, table, declared); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteRClass writes the R class of packageName with the symbols of table whose
// "<type>/<name>" key is in declared, in table order.
func WriteRClass(w io.Writer, packageName string, table []Symbol, declared map[string]bool) error {
	var types []string
	byType := make(map[string][]string)
	for _, s := range table {
		var lines []string
		if declared[symbolKey(s.Type, s.Name)] {
			lines = append(lines, fmt.Sprintf("public static final %s %s = %s;", s.JavaType, s.Name, s.Value))
		}
		for i, c := range s.Children {
			name := s.Name + "_" + c
			if declared[symbolKey(s.Type, name)] {
				lines = append(lines, fmt.Sprintf("public static final int %s = %s;", name, s.ChildValues[i]))
			}
		}
		if len(lines) == 0 {
			continue
		}
		if _, ok := byType[s.Type]; !ok {
			types = append(types, s.Type)
		}
		byType[s.Type] = append(byType[s.Type], lines...)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "/* AUTO-GENERATED FILE.  DO NOT MODIFY. */")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "package %s;\n\n", packageName)
	fmt.Fprintln(bw, "public final class R {")
	for _, t := range types {
		fmt.Fprintf(bw, "    public static final class %s {\n", t)
		for _, line := range byType[t] {
			fmt.Fprintf(bw, "        %s\n", line)
		}
		fmt.Fprintln(bw, "    }")
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
