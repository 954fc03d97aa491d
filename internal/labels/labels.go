package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
)

var (
	ErrUnbalanced     = errors.New("real and fake samples differ in size")
	ErrNotEnoughItems = errors.New("not enough items for the example set")
	ErrEmptyDeck      = errors.New("quiz sequence is empty")
)

// Mapping maps an image filename to true when the image is real.
type Mapping map[string]bool

// Load reads a JSON label mapping from a file path or an http(s) URL.
func Load(ctx context.Context, src string, client *http.Client) (Mapping, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		rc, err = fetch(ctx, src, client)
	} else {
		rc, err = os.Open(src)
	}
	if err != nil {
		return nil, fmt.Errorf("open labels %s: %w", src, err)
	}
	defer rc.Close()

	var m Mapping
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode labels %s: %w", src, err)
	}
	return m, nil
}

func fetch(ctx context.Context, url string, client *http.Client) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

type Options struct {
	Examples        int // held out per class
	SamplesPerClass int // 0 = keep everything left after the examples
}

// Deck is the quiz built from a Mapping. It is never mutated after Build.
type Deck struct {
	ExamplesReal []string `json:"examples_real"`
	ExamplesFake []string `json:"examples_fake"`
	Images       []string `json:"images"`
	Labels       []bool   `json:"labels"`
}

// Build partitions m by label, holds out examples on each side, samples an
// equal number of real and fake items and shuffles them into one sequence.
// Keys are sorted before shuffling so a seeded rng reproduces the deck.
func Build(m Mapping, opts Options, rng *rand.Rand) (*Deck, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var reals, fakes []string
	for _, k := range keys {
		if m[k] {
			reals = append(reals, k)
		} else {
			fakes = append(fakes, k)
		}
	}
	shuffle(rng, reals)
	shuffle(rng, fakes)

	if len(reals) < opts.Examples || len(fakes) < opts.Examples {
		return nil, fmt.Errorf("%w: need %d per class, have %d real and %d fake",
			ErrNotEnoughItems, opts.Examples, len(reals), len(fakes))
	}
	d := &Deck{
		ExamplesReal: reals[:opts.Examples:opts.Examples],
		ExamplesFake: fakes[:opts.Examples:opts.Examples],
	}
	reals, fakes = reals[opts.Examples:], fakes[opts.Examples:]

	if n := opts.SamplesPerClass; n > 0 {
		reals = truncate(reals, n)
		fakes = truncate(fakes, n)
	}
	if len(reals) != len(fakes) {
		return nil, fmt.Errorf("%w: %d real vs %d fake", ErrUnbalanced, len(reals), len(fakes))
	}
	if len(reals) == 0 {
		return nil, ErrEmptyDeck
	}

	type item struct {
		image string
		label bool
	}
	items := make([]item, 0, len(reals)*2)
	for _, k := range reals {
		items = append(items, item{k, true})
	}
	for _, k := range fakes {
		items = append(items, item{k, false})
	}
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

	d.Images = make([]string, len(items))
	d.Labels = make([]bool, len(items))
	for i, it := range items {
		d.Images[i], d.Labels[i] = it.image, it.label
	}
	return d, nil
}

func shuffle(rng *rand.Rand, s []string) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

func truncate(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func (d *Deck) Len() int { return len(d.Images) }

func (d *Deck) Image(i int) string { return d.Images[i] }

func (d *Deck) Label(i int) bool { return d.Labels[i] }
