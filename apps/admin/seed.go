package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/subject"
)

type (
	seedFile struct {
		Institutions []seedInstitution `yaml:"institutions"`
	}

	seedInstitution struct {
		Name    string       `yaml:"name"`
		Address string       `yaml:"address"`
		Courses []seedCourse `yaml:"courses"`
	}

	seedCourse struct {
		Name         string        `yaml:"name"`
		Code         string        `yaml:"code"`
		Description  string        `yaml:"description"`
		TotalCredits uint64        `yaml:"total_credits"`
		DegreeLevel  string        `yaml:"degree_level"`
		Subjects     []seedSubject `yaml:"subjects"`
	}

	seedSubject struct {
		Code          string `yaml:"code"`
		Title         string `yaml:"title"`
		Description   string `yaml:"description"`
		Credits       uint64 `yaml:"credits"`
		WorkloadHours uint64 `yaml:"workload_hours"`
		SubjectType   string `yaml:"subject_type"`
		KnowledgeArea string `yaml:"knowledge_area"`
		// Prerequisites are codes of subjects listed earlier in the same course.
		Prerequisites []string `yaml:"prerequisites"`
	}

	seedSummary struct {
		Institutions, Courses, Subjects int
	}
)

func (cli *commandLine) seedCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Register the institutions, courses and subjects of a YAML file",
		Long: `Register the institutions, courses and subjects of a YAML file on behalf of an account.
Institutions are authorized right away when that account is the authority.

Example:
  $ admin seed catalog.yaml --as authority@registry.org`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if as == "" {
				_ = cmd.Usage()
				return errHelp
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading seed file")
			}
			var file seedFile
			if err = yaml.Unmarshal(data, &file); err != nil {
				return errors.Wrap(err, "decoding seed file")
			}

			acc, err := cli.services.Accounts.GetByEmail(cmd.Context(), as)
			if err != nil {
				return errors.Wrapf(err, "seeding as %s", as)
			}
			sum, err := cli.seed(cmd.Context(), acc.Actor(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d institution(s), %d course(s), %d subject(s)\n",
				sum.Institutions, sum.Courses, sum.Subjects)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "Email of the account registering the records")
	return cmd
}

func (cli *commandLine) seed(ctx context.Context, actor core.Actor, file seedFile) (seedSummary, error) {
	var sum seedSummary
	svcs := cli.services

	for _, si := range file.Institutions {
		inst, err := svcs.Institutions.Register(ctx, actor, institution.NewInstitution{Name: si.Name, Address: si.Address})
		if err != nil {
			return sum, errors.Wrapf(err, "institution %q", si.Name)
		}
		if actor.IsAuthority {
			inst, err = svcs.Institutions.Update(ctx, actor, inst.Index, institution.UpdateInstitution{
				IsAuthorized: institution.Authorized,
			})
			if err != nil {
				return sum, errors.Wrapf(err, "authorizing %q", si.Name)
			}
		}
		sum.Institutions++

		for _, sc := range si.Courses {
			crs, err := svcs.Courses.Create(ctx, actor, course.NewCourse{
				Institution:  inst.Index,
				Name:         sc.Name,
				Code:         sc.Code,
				Description:  sc.Description,
				TotalCredits: sc.TotalCredits,
				DegreeLevel:  sc.DegreeLevel,
			})
			if err != nil {
				return sum, errors.Wrapf(err, "course %q", sc.Code)
			}
			sum.Courses++

			byCode := make(map[string]string, len(sc.Subjects))
			for _, ss := range sc.Subjects {
				ns := subject.NewSubject{
					Institution:   inst.Index,
					CourseID:      crs.Index,
					Title:         ss.Title,
					Code:          ss.Code,
					WorkloadHours: ss.WorkloadHours,
					Credits:       ss.Credits,
					Description:   ss.Description,
					SubjectType:   ss.SubjectType,
					KnowledgeArea: ss.KnowledgeArea,
				}
				if len(ss.Prerequisites) > 0 {
					group := subject.NewPrerequisiteGroup{GroupType: subject.GroupAll}
					for _, code := range ss.Prerequisites {
						idx, ok := byCode[code]
						if !ok {
							return sum, errors.Errorf("subject %q: unknown prerequisite %q", ss.Code, code)
						}
						group.SubjectIDs = append(group.SubjectIDs, idx)
					}
					ns.PrerequisiteGroups = []subject.NewPrerequisiteGroup{group}
				}

				subj, err := svcs.Subjects.Create(ctx, actor, ns)
				if err != nil {
					return sum, errors.Wrapf(err, "subject %q", ss.Code)
				}
				byCode[ss.Code] = subj.Index
				sum.Subjects++
			}
		}
	}
	return sum, nil
}
