package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"guardian/internal/config"

	"github.com/spf13/cobra"
)

// backupEntry maps a file on disk to its path inside the archive. Archive
// paths are relative and prefixed by kind (history/, profiles/, or the bare
// config file) so restore can route them without guessing from extensions.
type backupEntry struct {
	src  string
	name string
}

func backupCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of Guardian data (history, config, voice profiles)",
		Long: `Creates a compressed .tar.gz archive containing the session history
database, the configuration file, and any voice profile definitions. The
backup is timestamped by default.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			dbPath, profileDir := resolveDataPaths(cfgPath)

			if outputPath == "" {
				backupDir := filepath.Join(config.DefaultConfigDir(), "backups")
				if err := os.MkdirAll(backupDir, 0o755); err != nil {
					return fmt.Errorf("cannot create backup directory: %w", err)
				}
				ts := time.Now().Format("20060102-150405")
				outputPath = filepath.Join(backupDir, fmt.Sprintf("guardian-backup-%s.tar.gz", ts))
			}

			entries := collectBackupEntries(cfgPath, dbPath, profileDir)
			if len(entries) == 0 {
				return fmt.Errorf("no files to backup (db: %s, config: %s, profiles: %s)", dbPath, cfgPath, profileDir)
			}

			if err := createTarGz(outputPath, entries); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			fmt.Printf("Backup created: %s\n", outputPath)
			fmt.Printf("Files included: %d\n", len(entries))
			for _, e := range entries {
				info, _ := os.Stat(e.src)
				size := int64(0)
				if info != nil {
					size = info.Size()
				}
				fmt.Printf("  - %s (%s)\n", e.name, humanSize(size))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: ~/.guardian/backups/guardian-backup-<timestamp>.tar.gz)")
	return cmd
}

func restoreCmd() *cobra.Command {
	var inputPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore Guardian data from a backup archive",
		Long: `Restores the session history database, configuration file, and voice
profiles from a .tar.gz backup archive created by 'guardian backup'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" && len(args) > 0 {
				inputPath = args[0]
			}
			if inputPath == "" {
				return fmt.Errorf("specify a backup file: guardian restore <file.tar.gz>")
			}

			cfgPath := resolveConfigPath()
			dbPath, profileDir := resolveDataPaths(cfgPath)

			// Safety: warn before overwriting
			if !force {
				existing := false
				if _, err := os.Stat(dbPath); err == nil {
					existing = true
				}
				if _, err := os.Stat(cfgPath); err == nil {
					existing = true
				}
				if existing {
					fmt.Printf("WARNING: This will overwrite existing data.\n")
					fmt.Printf("  Database: %s\n", dbPath)
					fmt.Printf("  Config:   %s\n", cfgPath)
					fmt.Printf("  Profiles: %s\n", profileDir)
					fmt.Printf("Use --force to skip this warning.\n")
					return fmt.Errorf("restore aborted (use --force to proceed)")
				}
			}

			restored, err := extractTarGz(inputPath, dbPath, cfgPath, profileDir)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			fmt.Printf("Restore completed from: %s\n", inputPath)
			fmt.Printf("Files restored: %d\n", len(restored))
			for _, f := range restored {
				fmt.Printf("  - %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "backup file to restore from")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing data without warning")
	return cmd
}

// resolveDataPaths determines the history database and voice profile
// locations, preferring configured paths over the config-directory defaults.
func resolveDataPaths(cfgPath string) (dbPath, profileDir string) {
	dbPath = filepath.Join(filepath.Dir(cfgPath), "history.db")
	profileDir = filepath.Join(filepath.Dir(cfgPath), "profiles")
	if cfg, err := config.Load(cfgPath); err == nil {
		if cfg.History.DBPath != "" {
			dbPath = cfg.History.DBPath
		}
		if cfg.Voice.ProfileDir != "" {
			profileDir = cfg.Voice.ProfileDir
		}
	}
	return dbPath, profileDir
}

// collectBackupEntries gathers whichever of the known data files exist.
func collectBackupEntries(cfgPath, dbPath, profileDir string) []backupEntry {
	var entries []backupEntry

	if _, err := os.Stat(dbPath); err == nil {
		entries = append(entries, backupEntry{src: dbPath, name: "history/" + filepath.Base(dbPath)})
		// SQLite sidecar files carry unflushed writes; losing them can
		// roll the restored database back.
		for _, suffix := range []string{"-wal", "-shm"} {
			sidecar := dbPath + suffix
			if _, err := os.Stat(sidecar); err == nil {
				entries = append(entries, backupEntry{src: sidecar, name: "history/" + filepath.Base(sidecar)})
			}
		}
	}

	if _, err := os.Stat(cfgPath); err == nil {
		entries = append(entries, backupEntry{src: cfgPath, name: "config.json"})
	}

	for _, p := range listProfileFiles(profileDir) {
		entries = append(entries, backupEntry{src: p, name: "profiles/" + filepath.Base(p)})
	}

	return entries
}

// listProfileFiles returns the YAML profile definitions in dir, if any.
func listProfileFiles(dir string) []string {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		ext := filepath.Ext(item.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, item.Name()))
		}
	}
	return files
}

// createTarGz creates a .tar.gz archive from the given entries.
func createTarGz(outputPath string, entries []backupEntry) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	gzWriter := gzip.NewWriter(outFile)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	for _, e := range entries {
		if err := addFileToTar(tarWriter, e); err != nil {
			return fmt.Errorf("add %s: %w", e.src, err)
		}
	}

	return nil
}

func addFileToTar(tw *tar.Writer, e backupEntry) error {
	file, err := os.Open(e.src)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = e.name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tw, file)
	return err
}

// extractTarGz extracts a backup archive, routing entries by their archive
// path: history/* to the database location, profiles/* to the profile
// directory, config.json to the config path.
func extractTarGz(archivePath, dbPath, cfgPath, profileDir string) ([]string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("not a valid gzip file: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	var restored []string

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		baseName := filepath.Base(header.Name)
		var targetPath string
		switch {
		case strings.HasPrefix(header.Name, "profiles/"):
			targetPath = filepath.Join(profileDir, baseName)
		case strings.HasPrefix(header.Name, "history/"):
			switch {
			case strings.HasSuffix(baseName, "-wal"):
				targetPath = dbPath + "-wal"
			case strings.HasSuffix(baseName, "-shm"):
				targetPath = dbPath + "-shm"
			default:
				targetPath = dbPath
			}
		case baseName == "config.json":
			targetPath = cfgPath
		// Flat archives made before entries carried directories.
		case strings.HasSuffix(baseName, ".db"):
			targetPath = dbPath
		case strings.HasSuffix(baseName, ".db-wal"):
			targetPath = dbPath + "-wal"
		case strings.HasSuffix(baseName, ".db-shm"):
			targetPath = dbPath + "-shm"
		default:
			targetPath = filepath.Join(filepath.Dir(cfgPath), baseName)
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return nil, err
		}

		outFile, err := os.Create(targetPath)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", targetPath, err)
		}

		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()
			return nil, fmt.Errorf("extract %s: %w", targetPath, err)
		}
		outFile.Close()

		restored = append(restored, targetPath)
	}

	return restored, nil
}

func humanSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
