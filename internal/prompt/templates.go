package prompt

const analysisQueryTmpl = `You are a business intelligence analyst. Analyze this company's profile and goal to determine the best prospect discovery strategy.

COMPANY PROFILE:
- Company: {company}
- Industry: {industry}
- Size: {size}
- Stage: {stage}
- What they do: {what_we_do}
- Target customers: {target_customers}
- Value proposition: {value_proposition}
- Location: {location}
- Budget range: {budget_range}

GOAL: {goal}

Based on this information, determine:
1. What type of prospects they need (companies, individuals, investors, partners, etc.)
2. What industry/sector to target
3. What size/stage companies to focus on
4. What specific pain points or needs to look for
5. What search strategy would be most effective

Generate search queries that would find these specific prospects.`

const analysisReportTmpl = `You are analyzing a company's prospect needs. Based on the company profile and goal, provide a strategic analysis.

COMPANY: {company}
GOAL: {goal}

Provide your analysis in this format:

## PROSPECT DISCOVERY ANALYSIS

**Prospect Type:** [Type of prospects needed - companies, individuals, investors, etc.]
**Target Industry:** [Which industries/sectors to focus on]
**Company Size/Stage:** [What size/stage companies to target]
**Geographic Focus:** [Where to search - local, national, global]
**Key Criteria:** [What specific characteristics to look for]
**Pain Points to Target:** [What problems/needs to focus on]
**Search Strategy:** [How to approach the search]
**Recommended Approach:** [Best way to reach these prospects]

**Search Queries to Use:**
1. [Specific search query 1]
2. [Specific search query 2]
3. [Specific search query 3]
4. [Specific search query 4]
5. [Specific search query 5]

Focus on actionable insights that will help find the most relevant prospects for this specific goal.`

const discoveryQueryTmpl = `You are a prospect researcher for {company}.
Find SPECIFIC {prospect_type_upper} that match their goal: {goal}

COMPANY CONTEXT:
- They do: {what_we_do}
- Their target customers: {target_customers}
- Their value proposition: {value_proposition}

TARGET CRITERIA:
- Prospect type: {prospect_type}
- Target industry: {target_industry}
- Key criteria: {key_criteria}

Generate search queries that find ACTUAL {prospect_type}, not general information.

Focus on finding:
- Business directories and databases
- Industry-specific listings
- Recent news and announcements
- Funding databases (if looking for funded companies)
- Professional networks and associations
- Job postings that reveal company needs

Example query patterns:
- "site:crunchbase.com {target_industry} {location}"
- "site:linkedin.com/company {target_industry} hiring"
- "{target_industry} companies {key_criteria}"
- "recent funding {target_industry} {location}"

Avoid generic queries. Focus on finding specific, actionable prospects.`

const discoveryReportTmpl = `You are extracting PROSPECTS for: {goal}

COMPANY CONTEXT: {company} - {what_we_do}
TARGET: {prospect_type} in {target_industry} that match: {key_criteria}

For each prospect found, extract:
- Name (person/company name)
- Contact information (email, phone, LinkedIn, website)
- Business description (what they do)
- Why they're relevant to the goal: {goal}
- Recent activities or signals
- Location/headquarters
- Size/stage (if applicable)
- Specific pain points or needs mentioned

Format as structured data:

## PROSPECTS FOUND: {goal_upper}

**1. [Prospect Name]**
- Contact: [Email/Phone/LinkedIn]
- Website: [URL]
- Business: [What they do in 1 sentence]
- Relevance: [Why they match the goal]
- Recent Signals: [Recent activities/news/posts]
- Location: [City, State/Country]
- Size: [If applicable]
- Pain Points: [Specific challenges mentioned]

**2. [Next Prospect]**
...

Only include prospects that clearly match the goal: {goal}
If no relevant prospects found, state "No matching prospects found" and suggest refined search terms.`

const qualificationQueryTmpl = `Research {prospect} for {company}'s goal: {goal}

RESEARCH CONTEXT:
- Company offering: {what_we_do}
- Value proposition: {value_proposition}
- Typical customers: {target_customers}
- Goal: {goal}

Find specific information about {prospect}:
- Current business situation and challenges
- Recent activities, announcements, or changes
- Team size, growth patterns, hiring
- Budget indicators and investment patterns
- Decision-making process and key contacts
- Pain points that align with our value proposition
- Timeline and urgency indicators

Search patterns:
- "{prospect} challenges problems pain points"
- "{prospect} recent news announcements funding"
- "{prospect} team hiring growth expansion"
- "site:linkedin.com/in {prospect} contact"
- "{prospect} {industry} opportunity"`

const qualificationReportTmpl = `Create an INTELLIGENT QUALIFICATION for {prospect}.

QUALIFICATION CONTEXT:
- Our Company: {company}
- Our Offering: {what_we_do}
- Our Goal: {goal}

## PROSPECT QUALIFICATION: {prospect}

**Company Overview:** name, role or business type, size and growth stage
**Opportunity:** how they relate to {goal} and which pain points we could solve
**Sales Signals:** recent activities, budget indicators, growth and hiring
**Contact Strategy:** best contact methods, decision makers, warm intro paths
**Next Steps:** recommended outreach, timing and follow-up

Finish with "Likelihood of success: High/Medium/Low".`
