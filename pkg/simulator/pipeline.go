package simulator

import (
	"fmt"
	"runtime"
	"sync"

	"cryosim/internal/models"
	"cryosim/pkg/detector"
	"cryosim/pkg/logging"
	"cryosim/pkg/pose"
	"cryosim/pkg/spectral"

	"golang.org/x/exp/rand"
)

// Pipeline turns a specimen into detector images.
type Pipeline struct {
	Specimen Scatterer

	// Detector reads out the image. Nil means a NullDetector.
	Detector detector.Detector

	// Downsample resamples the padded image to the nominal shape by
	// Fourier truncation instead of cropping it.
	Downsample bool
}

func (p *Pipeline) detector() detector.Detector {
	if p.Detector == nil {
		return detector.NullDetector{}
	}
	return p.Detector
}

// Render returns the noiseless detector image of the specimen. The image
// has the nominal shape and a zero imaginary part.
func (p *Pipeline) Render() (*models.Image, error) {
	return p.render(p.Specimen)
}

func (p *Pipeline) render(s Scatterer) (*models.Image, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: pipeline has no specimen", models.ErrUnsupportedConfiguration)
	}
	cfg := s.Config()
	exit, err := s.ScatterToExitPlane()
	if err != nil {
		return nil, err
	}

	padded := spectral.InverseImage(exit)
	var img *models.Image
	if p.Downsample {
		img, err = cfg.Downsample(padded)
	} else {
		img, err = cfg.Crop(padded)
	}
	if err != nil {
		return nil, err
	}

	measured, err := p.detector().Measure(img, cfg.PixelSize())
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	return realPart(measured), nil
}

// Simulate renders the specimen and adds one noise realization drawn from
// src. The same source state yields the same image.
func (p *Pipeline) Simulate(src rand.Source) (*models.Image, error) {
	clean, err := p.Render()
	if err != nil {
		return nil, err
	}
	return p.addNoise(clean, src)
}

func (p *Pipeline) addNoise(img *models.Image, src rand.Source) (*models.Image, error) {
	cfg := p.Specimen.Config()
	spectrum := spectral.ForwardImage(img)
	noise, err := p.detector().Sample(src, cfg.Freqs(), cfg.Shape())
	if err != nil {
		return nil, fmt.Errorf("sample detector noise: %w", err)
	}
	for i, v := range noise {
		spectrum.Data[i] += v
	}
	return realPart(spectral.InverseImage(spectrum)), nil
}

// RenderViews renders the specimen in every pose concurrently. Image i
// belongs to poses[i]; when seed is non-nil, view i gets noise from the
// source rand.NewSource(*seed + i).
func (p *Pipeline) RenderViews(poses []pose.EulerAnglePose, seed *uint64, workers int) ([]*models.Image, error) {
	if p.Specimen == nil {
		return nil, fmt.Errorf("%w: pipeline has no specimen", models.ErrUnsupportedConfiguration)
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(poses) {
		workers = len(poses)
	}
	logging.Logger().Debug("rendering views", "views", len(poses), "workers", workers)

	type result struct {
		index int
		img   *models.Image
		err   error
	}
	jobs := make(chan int)
	results := make(chan result, len(poses))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				img, err := p.render(p.Specimen.WithPose(poses[i]))
				if err == nil && seed != nil {
					img, err = p.addNoise(img, rand.NewSource(*seed+uint64(i)))
				}
				results <- result{index: i, img: img, err: err}
			}
		}()
	}
	for i := range poses {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]*models.Image, len(poses))
	errs := make([]error, len(poses))
	for r := range results {
		out[r.index], errs[r.index] = r.img, r.err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("view %d: %w", i, err)
		}
	}
	return out, nil
}

func realPart(img *models.Image) *models.Image {
	out := models.NewImage(img.Rows, img.Cols)
	for i, v := range img.Data {
		out.Data[i] = complex(real(v), 0)
	}
	return out
}
