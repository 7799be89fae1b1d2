package hackernews

// Schema is the GraphQL schema served by the handler
const Schema = `
type Query {
  info: String!
  comment(id: ID!): Comment
  link(id: ID): Link
  feed(filterNeedle: String, skip: Int, take: Int): [Link!]!
}
type Comment { id: ID!, body: String!, link: Link }
type Mutation {
  postLink(url: String!, description: String!): Link!
  postCommentOnLink(linkId: ID!, body: String!): Comment!
}
type Link { id: ID!, description: String!, url: String!, comments: [Comment!]! }
`
