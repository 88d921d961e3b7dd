package problem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Load reads an instance file. The problem name is the file name without
// its extension.
func Load(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open instance file %s: %w", path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p, err := Parse(name, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instance file %s: %w", path, err)
	}
	return p, nil
}

// Parse reads an instance in the Vallada & Ruiz text format:
//
//	N M
//	N lines of M "machine time" pairs
//	SSD
//	M0
//	N lines of N setup times
//	M1
//	...
func Parse(name string, r io.Reader) (*Problem, error) {
	sc := &scanner{s: bufio.NewScanner(r)}
	sc.s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	jobs, err := sc.int("number of jobs")
	if err != nil {
		return nil, err
	}
	machines, err := sc.int("number of machines")
	if err != nil {
		return nil, err
	}
	if jobs <= 0 || machines <= 0 {
		return nil, fmt.Errorf("line %d: jobs and machines must be > 0 (got %d, %d)", sc.line, jobs, machines)
	}

	process := make([][]int, jobs)
	for j := 0; j < jobs; j++ {
		process[j] = make([]int, machines)
		for k := 0; k < machines; k++ {
			m, err := sc.int(fmt.Sprintf("machine index for job %d", j))
			if err != nil {
				return nil, err
			}
			if m < 0 || m >= machines {
				return nil, fmt.Errorf("line %d: machine index %d out of range [0, %d)", sc.line, m, machines)
			}
			t, err := sc.int(fmt.Sprintf("processing time of job %d on machine %d", j, m))
			if err != nil {
				return nil, err
			}
			process[j][m] = t
		}
	}

	if err := sc.expect("SSD"); err != nil {
		return nil, err
	}

	setup := make([][][]int, machines)
	for m := 0; m < machines; m++ {
		if err := sc.expect("M" + strconv.Itoa(m)); err != nil {
			return nil, err
		}
		setup[m] = make([][]int, jobs)
		for i := 0; i < jobs; i++ {
			setup[m][i] = make([]int, jobs)
			for j := 0; j < jobs; j++ {
				v, err := sc.int(fmt.Sprintf("setup time of machine %d from job %d to job %d", m, i, j))
				if err != nil {
					return nil, err
				}
				setup[m][i][j] = v
			}
		}
	}

	return New(name, process, setup)
}

// scanner yields whitespace separated tokens while tracking line numbers.
type scanner struct {
	s      *bufio.Scanner
	line   int
	tokens []string
}

func (sc *scanner) next(what string) (string, error) {
	for len(sc.tokens) == 0 {
		if !sc.s.Scan() {
			if err := sc.s.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("line %d: unexpected end of input, expected %s", sc.line, what)
		}
		sc.line++
		sc.tokens = strings.Fields(sc.s.Text())
	}
	tok := sc.tokens[0]
	sc.tokens = sc.tokens[1:]
	return tok, nil
}

func (sc *scanner) int(what string) (int, error) {
	tok, err := sc.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s %q", sc.line, what, tok)
	}
	return v, nil
}

func (sc *scanner) expect(literal string) error {
	tok, err := sc.next(literal)
	if err != nil {
		return err
	}
	if !strings.EqualFold(tok, literal) {
		return fmt.Errorf("line %d: expected %q, got %q", sc.line, literal, tok)
	}
	return nil
}

// Write serialises p in the format accepted by Parse.
func (p *Problem) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", p.NJobs, p.NMachines)
	for j := 0; j < p.NJobs; j++ {
		for m := 0; m < p.NMachines; m++ {
			if m > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%d %d", m, p.process[j][m])
		}
		bw.WriteByte('\n')
	}
	bw.WriteString("SSD\n")
	for m := 0; m < p.NMachines; m++ {
		fmt.Fprintf(bw, "M%d\n", m)
		for i := 0; i < p.NJobs; i++ {
			for j := 0; j < p.NJobs; j++ {
				if j > 0 {
					bw.WriteByte(' ')
				}
				bw.WriteString(strconv.Itoa(p.setup[m][i][j]))
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}
