package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cryosim/internal/models"
	"cryosim/pkg/config"
	"cryosim/pkg/density"
	"cryosim/pkg/diagnostics"
	"cryosim/pkg/logging"
	"cryosim/pkg/pdb"
	"cryosim/pkg/potential"
	"cryosim/pkg/simulator"
	"cryosim/pkg/visualization"

	"gonum.org/v1/gonum/floats"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "PDB file with the atomic model")
	configPath := flag.String("config", "cryosim.yaml", "YAML configuration file (defaults are used if missing)")
	outputDir := flag.String("output", "projections", "Directory for the simulated images")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (overrides the configuration when > 0)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	metrics := flag.Bool("metrics", false, "Compare noisy images with their noiseless versions")
	peaks := flag.Bool("peaks", false, "Check density peaks against atom positions")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	fmt.Println("================================")
	fmt.Println("CRYO-EM IMAGE SIMULATION")
	fmt.Println("================================")
	startTime := time.Now()

	// Step 1: atoms
	fmt.Println("Step 1: Reading atomic model...")
	var readOpts []pdb.Option
	if cfg.Density.SkipHydrogens {
		readOpts = append(readOpts, pdb.SkipHydrogens())
	}
	atoms, err := pdb.ReadFile(*inputFile, readOpts...)
	if err != nil {
		log.Fatalf("Failed to read structure: %v", err)
	}
	fmt.Printf("Read %d atoms from %s\n", atoms.Len(), *inputFile)

	table, err := cfg.LoadFormFactors()
	if err != nil {
		log.Fatalf("Failed to load form factors: %v", err)
	}

	// Step 2: density
	fmt.Println("Step 2: Building the voxel density...")
	pot, err := simulator.PotentialFromAtoms(atoms, table, cfg.Density.VoxelsPerSide, cfg.Density.VoxelSize,
		density.WithWorkers(cfg.Processing.NumCores))
	if err != nil {
		log.Fatalf("Failed to build density: %v", err)
	}
	fmt.Printf("Density grid: %d^3 voxels of %.3f A\n", pot.Grid.N, pot.Grid.VoxelSize)

	if cfg.Output.SaveDensitySlices {
		viewer, err := visualization.NewViewer(pot.Grid)
		if err != nil {
			log.Fatalf("Failed to create viewer: %v", err)
		}
		slicesPath := filepath.Join(*outputDir, cfg.Output.DensitySlicesDir)
		fmt.Printf("Saving z-axis density slices to: %s\n", slicesPath)
		if err := viewer.SaveSliceSequence("z", slicesPath); err != nil {
			log.Printf("Warning: Failed to save density slices: %v", err)
		}
	}

	if *peaks {
		reportPeaks(pot, atoms)
	}

	// Step 3: projections
	imgCfg, err := cfg.BuildImageConfig()
	if err != nil {
		log.Fatalf("Invalid imaging plane: %v", err)
	}
	strategy, err := cfg.BuildStrategy(imgCfg)
	if err != nil {
		log.Fatalf("Invalid scattering method: %v", err)
	}
	det, err := cfg.BuildDetector()
	if err != nil {
		log.Fatalf("Invalid detector: %v", err)
	}
	pipeline := &simulator.Pipeline{
		Specimen:   &simulator.Specimen{Potential: pot, Strategy: strategy, Pose: cfg.Pose},
		Detector:   det,
		Downsample: cfg.Scattering.Downsample,
	}

	poses := cfg.Poses()
	fmt.Printf("Step 3: Simulating %d view(s) with %v scattering on a %v plane...\n",
		len(poses), strategy.Method(), imgCfg.Shape())
	var seed *uint64
	if cfg.Noisy() {
		seed = &cfg.Detector.Seed
	}
	images, err := pipeline.RenderViews(poses, seed, cfg.Processing.NumCores)
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	// Step 4: output
	fmt.Println("Step 4: Writing images...")
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	for i, img := range images {
		name := filepath.Join(*outputDir, fmt.Sprintf("view_%03d.tif", i))
		if err := visualization.SaveImage(img, name); err != nil {
			log.Fatalf("Failed to save view %d: %v", i, err)
		}
	}
	fmt.Printf("\nSimulation completed successfully in %.2f seconds!\n", time.Since(startTime).Seconds())
	fmt.Printf("Images saved to: %s\n", *outputDir)

	if *metrics && cfg.Noisy() {
		clean, err := pipeline.RenderViews(poses, nil, cfg.Processing.NumCores)
		if err != nil {
			log.Fatalf("Noiseless simulation failed: %v", err)
		}
		fmt.Printf("\nNoise metrics (noisy vs noiseless):\n")
		fmt.Printf("=======================================\n")
		for i := range images {
			m, err := diagnostics.Compare(clean[i], images[i])
			if err != nil {
				log.Fatalf("Failed to compare view %d: %v", i, err)
			}
			fmt.Printf("View %d: RMSE %.6f  SSIM %.3f  correlation %.3f  MI %.3f  entropy diff %.3f\n",
				i, m.RMSE, m.SSIM, m.Correlation, m.MutualInformation, m.EntropyDiff)
		}
	}
}

// reportPeaks prints how far the strongest density maxima sit from the
// centered atoms.
func reportPeaks(pot *potential.RealVoxelGridPotential, atoms *models.AtomCloud) {
	threshold := 0.5 * floats.Max(pot.Grid.Data)
	found, err := diagnostics.FindPeaks(pot.Grid, threshold)
	if err != nil {
		log.Printf("Warning: Failed to find density peaks: %v", err)
		return
	}
	matches, err := diagnostics.MatchPeaks(found, atoms.Translated(atoms.Center()))
	if err != nil {
		log.Printf("Warning: Failed to match density peaks: %v", err)
		return
	}
	report := diagnostics.Summarize(matches)
	fmt.Printf("Density peaks above half maximum: %d\n", report.Peaks)
	fmt.Printf("- Mean distance to nearest atom: %.3f A\n", report.MeanDistance)
	fmt.Printf("- Max distance to nearest atom: %.3f A\n", report.MaxDistance)
	fmt.Printf("- Atoms resolved: %d of %d\n", report.AtomsFound, atoms.Len())
}
