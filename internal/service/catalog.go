package service

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"

	"propchat/internal/config"
	"propchat/internal/model"
	"propchat/internal/observability"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaBasics          = "schemas/property_basics.json"
	schemaCharacteristics = "schemas/property_characteristics.json"
	schemaImages          = "schemas/property_images.json"
)

// CatalogSource produces the merged property catalog
type CatalogSource interface {
	Load(ctx context.Context) ([]model.PropertyRecord, error)
}

// CatalogLoader reads the three JSON data sources from disk and merges them.
// Nothing is cached: every Load reads the files again.
type CatalogLoader struct {
	basicsPath          string
	characteristicsPath string
	imagesPath          string
	schemas             map[string]*jsonschema.Schema
}

// NewCatalogLoader creates a loader for the configured data directory
func NewCatalogLoader(cfg *config.DataConfig) (*CatalogLoader, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &CatalogLoader{
		basicsPath:          filepath.Join(cfg.Dir, cfg.BasicsFile),
		characteristicsPath: filepath.Join(cfg.Dir, cfg.CharacteristicsFile),
		imagesPath:          filepath.Join(cfg.Dir, cfg.ImagesFile),
		schemas:             schemas,
	}, nil
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	names := []string{schemaBasics, schemaCharacteristics, schemaImages}

	for _, name := range names {
		f, err := schemaFS.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open schema %s: %w", name, err)
		}
		err = compiler.AddResource(name, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	compiled := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		compiled[name] = s
	}
	return compiled, nil
}

// Load reads all three sources concurrently and merges them.
// Any read, parse or validation failure aborts the whole load with
// model.ErrDataSourceUnavailable.
func (l *CatalogLoader) Load(ctx context.Context) ([]model.PropertyRecord, error) {
	start := time.Now()
	records, err := l.load(ctx)
	observability.ObserveCatalog(err, time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("catalog load failed")
		return nil, err
	}

	log.Debug().Int("properties", len(records)).Dur("took", time.Since(start)).Msg("catalog loaded")
	return records, nil
}

func (l *CatalogLoader) load(ctx context.Context) ([]model.PropertyRecord, error) {
	var (
		basics          []model.PropertyBasics
		characteristics []model.PropertyCharacteristics
		images          []model.PropertyImage
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.readSource(ctx, l.basicsPath, schemaBasics, &basics)
	})
	g.Go(func() error {
		return l.readSource(ctx, l.characteristicsPath, schemaCharacteristics, &characteristics)
	})
	g.Go(func() error {
		return l.readSource(ctx, l.imagesPath, schemaImages, &images)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(basics, characteristics, images), nil
}

// readSource reads, validates and decodes one JSON array source into target
func (l *CatalogLoader) readSource(ctx context.Context, path, schemaName string, target any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrDataSourceUnavailable, filepath.Base(path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", model.ErrDataSourceUnavailable, filepath.Base(path), err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: parse %s: %w", model.ErrDataSourceUnavailable, filepath.Base(path), err)
	}
	if err := l.schemas[schemaName].Validate(doc); err != nil {
		return fmt.Errorf("%w: validate %s: %w", model.ErrDataSourceUnavailable, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: decode %s: %w", model.ErrDataSourceUnavailable, filepath.Base(path), err)
	}
	return nil
}

// Merge joins the three sources on id. The output has exactly one record per
// identity entry, in identity order. Entries missing from the other sources
// get zero values; a repeated id within a source keeps its last entry.
func Merge(
	basics []model.PropertyBasics,
	characteristics []model.PropertyCharacteristics,
	images []model.PropertyImage,
) []model.PropertyRecord {
	charByID := make(map[model.PropertyID]model.PropertyCharacteristics, len(characteristics))
	for _, c := range characteristics {
		charByID[c.ID] = c
	}
	imageByID := make(map[model.PropertyID]model.PropertyImage, len(images))
	for _, img := range images {
		imageByID[img.ID] = img
	}

	merged := make([]model.PropertyRecord, 0, len(basics))
	for _, b := range basics {
		char := charByID[b.ID]
		img := imageByID[b.ID]

		record := model.PropertyRecord{
			ID:        b.ID,
			Title:     derefString(b.Title),
			Price:     derefFloat(b.Price),
			Location:  derefString(b.Location),
			Bedrooms:  derefInt(char.Bedrooms),
			Bathrooms: derefInt(char.Bathrooms),
			Size:      derefFloat(char.SizeSqft),
			Amenities: append([]string{}, char.Amenities...),
			Images:    []string{},
		}
		if url := derefString(img.ImageURL); url != "" {
			record.Images = append(record.Images, url)
		}
		merged = append(merged, record)
	}
	return merged
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
