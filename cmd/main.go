package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-curriculum/internal/app"
	domainerr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/apierr"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
)

const usage = `usage: curriculum <command> [flags]

commands:
  automigrate                      create or update the curriculum tables
  migrate-legacy [-dry-run]        convert legacy courses into curriculum trees
  rollback-legacy                  remove every curriculum node and the legacy blueprint
  export -name NAME -out FILE      write one blueprint as JSON
  export-all -dir DIR              write every blueprint as DIR/<name>.json
  import -file FILE                create a blueprint from an exported JSON file
  delete-blueprint -name NAME [-force]
                                   delete a blueprint no course uses
  tree -course ID                  print a course's curriculum tree
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close(ctx)

	dbc := dbctx.Context{Ctx: ctx}
	if err := run(application, dbc, cmd, args); err != nil {
		ae := apierr.FromError(err)
		fmt.Fprintf(os.Stderr, "%s: %v (%s)\n", cmd, err, ae.Code)
		application.Close(ctx)
		os.Exit(1)
	}
}

func run(a *app.App, dbc dbctx.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "automigrate":
		_ = fs.Parse(args)
		return a.Store.AutoMigrateAll()

	case "migrate-legacy":
		dryRun := fs.Bool("dry-run", false, "report what would be migrated without writing")
		_ = fs.Parse(args)
		report, err := a.Services.LegacyMigration.Migrate(dbc, *dryRun)
		if err != nil {
			return err
		}
		return printJSON(report)

	case "rollback-legacy":
		_ = fs.Parse(args)
		report, err := a.Services.LegacyMigration.RollbackMigration(dbc)
		if err != nil {
			return err
		}
		return printJSON(report)

	case "export":
		name := fs.String("name", "", "blueprint name")
		out := fs.String("out", "", "output file (stdout when empty)")
		_ = fs.Parse(args)
		bp, err := a.Repos.AcademicBlueprint.GetByName(dbc, *name)
		if err != nil {
			return err
		}
		if bp == nil {
			return domainerr.NotFound(cmd, "Blueprint %q not found", *name)
		}
		if strings.TrimSpace(*out) == "" {
			doc, err := a.Services.BlueprintSerialization.SerializeToJSON(bp)
			if err != nil {
				return err
			}
			fmt.Println(doc)
			return nil
		}
		return a.Services.BlueprintSerialization.ExportToFile(bp, *out)

	case "export-all":
		dir := fs.String("dir", "blueprints", "output directory")
		_ = fs.Parse(args)
		paths, err := a.Services.BlueprintSerialization.ExportAllToDir(dbc, *dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil

	case "import":
		file := fs.String("file", "", "exported blueprint JSON")
		_ = fs.Parse(args)
		bp, err := a.Services.BlueprintSerialization.ImportFromFile(dbc, *file)
		if err != nil {
			return err
		}
		fmt.Printf("imported %q as %s\n", bp.Name, bp.ID)
		return nil

	case "delete-blueprint":
		name := fs.String("name", "", "blueprint name")
		force := fs.Bool("force", false, "hard delete instead of soft delete")
		_ = fs.Parse(args)
		bp, err := a.Repos.AcademicBlueprint.GetByName(dbc, *name)
		if err != nil {
			return err
		}
		if bp == nil {
			return domainerr.NotFound(cmd, "Blueprint %q not found", *name)
		}
		if *force {
			err = a.Repos.AcademicBlueprint.ForceDelete(dbc, bp.ID)
		} else {
			err = a.Repos.AcademicBlueprint.SoftDelete(dbc, bp.ID)
		}
		if domainerr.IsCode(err, domainerr.CodeBlueprintInUse) {
			if courses, lerr := a.Repos.Course.GetByBlueprintIDs(dbc, []uuid.UUID{bp.ID}); lerr == nil {
				for _, c := range courses {
					fmt.Fprintf(os.Stderr, "  in use by %q (%s)\n", c.Title, c.ID)
				}
			}
		}
		if err != nil {
			return err
		}
		fmt.Printf("deleted %q\n", bp.Name)
		return nil

	case "tree":
		course := fs.String("course", "", "course id")
		_ = fs.Parse(args)
		courseID, err := uuid.Parse(strings.TrimSpace(*course))
		if err != nil {
			return fmt.Errorf("invalid -course: %w", err)
		}
		return printTree(a, dbc, courseID)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printTree(a *app.App, dbc dbctx.Context, courseID uuid.UUID) error {
	course, err := a.Repos.Course.GetByID(dbc, courseID)
	if err != nil {
		return err
	}
	if course == nil {
		return domainerr.NotFound("tree", "Course %s not found", courseID)
	}
	fmt.Printf("%s (%s)\n", course.Title, course.ID)
	nodes, err := a.Repos.CurriculumNode.GetTreeForCourse(dbc, courseID)
	if err != nil {
		return err
	}
	depth := map[uuid.UUID]int{}
	for _, n := range nodes {
		d := 0
		if n.ParentID != nil {
			d = depth[*n.ParentID] + 1
		}
		depth[n.ID] = d
		missing := a.Services.NodeProperties.ValidateRequiredProperties(n)
		note := ""
		if len(missing) > 0 {
			note = fmt.Sprintf("  [missing: %s]", strings.Join(missing, ", "))
		}
		fmt.Printf("%s%s %q (%s)%s\n", strings.Repeat("  ", d+1), n.NodeType, n.Title, n.ID, note)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
