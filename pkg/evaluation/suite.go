package evaluation

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptySuite is returned for a suite without sequences.
	ErrEmptySuite = errors.New("evaluation suite has no sequences")
	// ErrInvalidSequence is returned for an unnamed or duplicated sequence.
	ErrInvalidSequence = errors.New("invalid evaluation sequence")
)

// Sequence is a single named test sequence.
type Sequence struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// Suite is a named collection of test sequences.
type Suite struct {
	Name      string     `yaml:"name" json:"name"`
	Sequences []Sequence `yaml:"sequences" json:"sequences"`
}

// Validate reports whether the suite has at least one sequence and every
// sequence has a unique, non-empty name.
func (s *Suite) Validate() error {
	if len(s.Sequences) == 0 {
		return ErrEmptySuite
	}
	seen := make(map[string]struct{}, len(s.Sequences))
	for i, seq := range s.Sequences {
		if seq.Name == "" {
			return fmt.Errorf("%w: sequence %d has no name", ErrInvalidSequence, i)
		}
		if _, ok := seen[seq.Name]; ok {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidSequence, seq.Name)
		}
		seen[seq.Name] = struct{}{}
	}
	return nil
}

// LoadSuite decodes a YAML suite from r and validates it.
func LoadSuite(r io.Reader) (*Suite, error) {
	var s Suite
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySuite
		}
		return nil, fmt.Errorf("failed to decode suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSuiteFile reads a YAML suite from path. A suite without a name is
// named after the file.
func LoadSuiteFile(path string) (*Suite, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open suite file: %w", err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	s, err := LoadSuite(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// DefaultSuite returns the built-in suite of four reasonable English
// sequences of increasing length.
func DefaultSuite() *Suite {
	return &Suite{
		Name: "default",
		Sequences: []Sequence{
			{
				Name: "test_corpus_1",
				Text: "this is a test corpus, what is the probability of this sequence?",
			},
			{
				Name: "test_corpus_2",
				Text: "This is another test, and I wonder what the model will think of this. I hope it works well!",
			},
			{
				Name: "test_corpus_3",
				Text: "The galaxy is so massive, so infinite in its scope, that it is almost impossible to imagine what it might contain.",
			},
			{
				Name: "test_corpus_4",
				Text: "A coin is a small object, usually round and flat, used primarily as a medium of exchange or legal tender. " +
					"They are standardized in weight, and produced in large quantities at a mint in order to facilitate trade. " +
					"They are most often issued by a government. Coins often have images, numerals, or text on them. " +
					"The faces of coins or medals are sometimes called the obverse and the reverse, referring to the front and back sides, respectively. " +
					"The obverse of a coin is commonly called heads, because it often depicts the head of a prominent person, and the reverse is known as tails.",
			},
		},
	}
}
