package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewBlogCmd creates the blog command group
func NewBlogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blog",
		Short: "Read the bank's blog",
	}

	var category, tag, search string
	list := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List published posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}

			params := url.Values{}
			if category != "" {
				params.Set("category", category)
			}
			if tag != "" {
				params.Set("tag", tag)
			}
			if search != "" {
				params.Set("search", search)
			}

			posts, err := rt.Services.Blog.Posts(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to list posts: %w", err)
			}
			if len(posts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No posts found.")
				return nil
			}
			w := newTable(cmd.OutOrStdout(), "SLUG", "TITLE", "CATEGORY", "READ TIME")
			for _, p := range posts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d min\n", p.Slug, p.Title, p.Category, p.ReadTime)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&category, "category", "", "Filter by category slug")
	list.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	list.Flags().StringVar(&search, "search", "", "Full-text search")

	show := &cobra.Command{
		Use:   "show <slug>",
		Short: "Read a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			post, err := rt.Services.Blog.Post(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load post: %w", err)
			}
			comments, err := rt.Services.Blog.Comments(ctx, args[0], nil)
			if err != nil {
				return fmt.Errorf("failed to load comments: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n%s\n", post.Title, post.Content)
			if len(comments) > 0 {
				fmt.Fprintf(out, "\n%d comments\n", len(comments))
				for _, c := range comments {
					fmt.Fprintf(out, "\n%s, %s\n  %s\n", c.Name, formatTime(c.CreatedAt), c.Content)
				}
			}
			return nil
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			cats, err := rt.Services.Blog.Categories(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			w := newTable(cmd.OutOrStdout(), "SLUG", "NAME", "DESCRIPTION")
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Slug, c.Name, c.Description)
			}
			return w.Flush()
		},
	}

	for _, sub := range []*cobra.Command{list, show, categories} {
		cmd.AddCommand(BindRoute(sub, "/blog"))
	}
	return cmd
}
